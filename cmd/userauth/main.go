package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/andrebq/userauth/cmd/userauth/serve"
	"github.com/andrebq/userauth/cmd/userauth/users"
	"github.com/andrebq/userauth/internal/cmdflags"
	"github.com/andrebq/userauth/internal/logutil"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	var logLevel string
	var logPretty bool
	app := &cli.App{
		Name:  "userauth",
		Usage: "Session based authentication gate in front of your handlers",
		Flags: []cli.Flag{
			cmdflags.LogLevel(&logLevel),
			cmdflags.LogPretty(&logPretty),
		},
		Before: func(*cli.Context) error {
			return logutil.Configure(logLevel, logPretty)
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			users.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
	}
}
