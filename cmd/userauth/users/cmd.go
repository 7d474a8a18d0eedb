package users

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/andrebq/userauth/directory"
	"github.com/andrebq/userauth/internal/cmdflags"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var dataDir string
	return &cli.Command{
		Name:  "users",
		Usage: "Manage the accounts known to the demo directory",
		Flags: []cli.Flag{
			cmdflags.DataDir(&dataDir),
		},
		Subcommands: []*cli.Command{
			addCmd(&dataDir),
			listCmd(&dataDir),
		},
	}
}

func addCmd(dataDir *string) *cli.Command {
	var login, name string
	return &cli.Command{
		Name:  "add",
		Usage: "Register a new account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "login",
				Aliases:     []string{"l"},
				Usage:       "Unique login of the account",
				Required:    true,
				Destination: &login,
			},
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "Display name, defaults to the login",
				Destination: &name,
			},
		},
		Action: func(ctx *cli.Context) error {
			d, err := directory.Open(ctx.Context, *dataDir)
			if err != nil {
				return err
			}
			defer d.Close()
			acc, err := d.Register(ctx.Context, login, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.Writer, "%v\t%v\n", acc.ID, acc.Login)
			return nil
		},
	}
}

func listCmd(dataDir *string) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all accounts",
		Action: func(ctx *cli.Context) error {
			d, err := directory.Open(ctx.Context, *dataDir)
			if err != nil {
				return err
			}
			defer d.Close()
			all, err := d.List(ctx.Context)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLOGIN\tNAME\tLAST LOGIN")
			for _, acc := range all {
				lastLogin := "never"
				if !acc.LastLoginAt.IsZero() {
					lastLogin = acc.LastLoginAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", acc.ID, acc.Login, acc.DisplayName, lastLogin)
			}
			return w.Flush()
		},
	}
}
