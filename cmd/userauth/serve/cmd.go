package serve

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/andrebq/userauth/internal/cmdflags"
	"github.com/andrebq/userauth/internal/demo"
	"github.com/andrebq/userauth/internal/httpserver"
	"github.com/andrebq/userauth/internal/logutil"
	"github.com/andrebq/userauth/userauth"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:7007"
	var dataDir string
	sessionStore := demo.StoreMemory
	sessionLifetime := demo.DefaultSessionLifetime
	protect := demo.DefaultProtect.String()
	var hooksFile string
	var upstream string
	var opts userauth.Options
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bind",
			Usage:       "Address to bind for incoming request",
			EnvVars:     []string{"USERAUTH_BIND"},
			Destination: &bindAddr,
			Value:       bindAddr,
		},
		cmdflags.DataDir(&dataDir),
		&cli.StringFlag{
			Name:        "session-store",
			Usage:       fmt.Sprintf("Where sessions are kept, either %v or %v", demo.StoreMemory, demo.StoreSQLite),
			EnvVars:     []string{"USERAUTH_SESSION_STORE"},
			Destination: &sessionStore,
			Value:       sessionStore,
		},
		&cli.DurationFlag{
			Name:        "session-lifetime",
			Usage:       "How long the memory store keeps idle sessions",
			EnvVars:     []string{"USERAUTH_SESSION_LIFETIME"},
			Destination: &sessionLifetime,
			Value:       sessionLifetime,
		},
		&cli.StringFlag{
			Name:        "protect",
			Usage:       "Regular expression selecting the paths that require a user",
			EnvVars:     []string{"USERAUTH_PROTECT"},
			Destination: &protect,
			Value:       protect,
		},
		&cli.StringFlag{
			Name:        "hooks",
			Usage:       "Lua script defining get_user, login_callback or logout_callback",
			EnvVars:     []string{"USERAUTH_HOOKS"},
			Destination: &hooksFile,
		},
		&cli.StringFlag{
			Name:        "upstream",
			Usage:       "Base URL of an application receiving every request not handled by the demo",
			EnvVars:     []string{"USERAUTH_UPSTREAM"},
			Destination: &upstream,
		},
	}
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the demo application behind the authentication gate",
		Flags: append(flags, cmdflags.GateOptions(&opts)...),
		Action: func(ctx *cli.Context) error {
			re, err := regexp.Compile(protect)
			if err != nil {
				return fmt.Errorf("invalid protect expression, cause %w", err)
			}
			var upstreamURL *url.URL
			if upstream != "" {
				upstreamURL, err = url.Parse(upstream)
				if err != nil {
					return err
				}
			}
			app, err := demo.New(ctx.Context, demo.Config{
				DataDir:         dataDir,
				SessionStore:    sessionStore,
				SessionLifetime: sessionLifetime,
				Protect:         re,
				Gate:            opts,
				HooksFile:       hooksFile,
				Upstream:        upstreamURL,
			})
			if err != nil {
				return err
			}
			defer app.Close()
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Str("bind", bindAddr).
				Str("protect", protect).
				Str("sessionStore", sessionStore).
				Dur("sessionLifetime", sessionLifetime.Round(time.Second)).
				Msg("Starting userauth demo")
			return httpserver.Serve(ctx.Context, bindAddr, app)
		},
	}
}
