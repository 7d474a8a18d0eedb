package cmdflags

import (
	"github.com/andrebq/userauth/userauth"
	"github.com/urfave/cli/v2"
)

const (
	envPrefix = "USERAUTH_"
)

func envVar(name string) []string {
	return []string{envPrefix + name}
}

func DataDir(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "."
	}
	return &cli.StringFlag{
		Name:        "data-dir",
		Aliases:     []string{"d"},
		Usage:       "Directory holding the user directory and the sqlite session store",
		EnvVars:     envVar("DATA_DIR"),
		Destination: out,
		Value:       *out,
	}
}

func LogLevel(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "info"
	}
	return &cli.StringFlag{
		Name:        "log-level",
		Usage:       "Minimum level of log messages (trace, debug, info, warn, error)",
		EnvVars:     envVar("LOG_LEVEL"),
		Destination: out,
		Value:       *out,
	}
}

func LogPretty(out *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "log-pretty",
		Usage:       "Write human friendly logs instead of json",
		EnvVars:     envVar("LOG_PRETTY"),
		Destination: out,
		Value:       *out,
	}
}

// GateOptions binds the path and proxy settings of the authentication
// gate. Collaborators are left untouched.
func GateOptions(opts *userauth.Options) []cli.Flag {
	if opts.LoginPath == "" {
		opts.LoginPath = userauth.DefaultLoginPath
	}
	if opts.LogoutPath == "" {
		opts.LogoutPath = userauth.DefaultLogoutPath
	}
	if opts.UserField == "" {
		opts.UserField = userauth.DefaultUserField
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "login-path",
			Usage:       "Path that starts the login flow",
			EnvVars:     envVar("LOGIN_PATH"),
			Destination: &opts.LoginPath,
			Value:       opts.LoginPath,
		},
		&cli.StringFlag{
			Name:        "login-callback-path",
			Usage:       "Path the login provider returns to, defaults to <login-path>/callback",
			EnvVars:     envVar("LOGIN_CALLBACK_PATH"),
			Destination: &opts.LoginCallbackPath,
			Value:       opts.LoginCallbackPath,
		},
		&cli.StringFlag{
			Name:        "logout-path",
			Usage:       "Path that ends the session",
			EnvVars:     envVar("LOGOUT_PATH"),
			Destination: &opts.LogoutPath,
			Value:       opts.LogoutPath,
		},
		&cli.StringFlag{
			Name:        "user-field",
			Usage:       "Session field holding the authenticated user",
			EnvVars:     envVar("USER_FIELD"),
			Destination: &opts.UserField,
			Value:       opts.UserField,
		},
		&cli.StringFlag{
			Name:        "root-path",
			Usage:       "Prefix under which the application is mounted",
			EnvVars:     envVar("ROOT_PATH"),
			Destination: &opts.RootPath,
			Value:       opts.RootPath,
		},
		&cli.BoolFlag{
			Name:        "trust-forwarded-proto",
			Usage:       "Use X-Forwarded-Proto as the scheme of the login callback URL",
			EnvVars:     envVar("TRUST_FORWARDED_PROTO"),
			Destination: &opts.TrustForwardedProto,
			Value:       opts.TrustForwardedProto,
		},
	}
}
