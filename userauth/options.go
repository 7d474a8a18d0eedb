package userauth

import (
	"net/http"
	"strings"

	"github.com/andrebq/userauth/internal/logutil"
	"github.com/andrebq/userauth/session"
)

type (
	// User is the opaque user record stored in the session.
	User interface{}

	// Session is the part of the session layer used by the gate.
	// Set(key, nil) clears a field.
	Session interface {
		Get(key string) interface{}
		Set(key string, value interface{})
	}

	SessionFunc func(*http.Request) Session

	// UserLookup returns the identity behind the request, a nil User
	// means the request is not authenticated.
	UserLookup interface {
		GetUser(r *http.Request) (User, error)
	}

	UserLookupFunc func(r *http.Request) (User, error)

	// LoginConfirmer finalizes a login. It may replace the user record
	// and may return a non-empty URL to redirect to instead of the
	// default destination.
	LoginConfirmer interface {
		ConfirmLogin(r *http.Request, user User) (User, string, error)
	}

	LoginConfirmerFunc func(r *http.Request, user User) (User, string, error)

	// LogoutConfirmer runs before the session user is cleared. It may
	// write response headers and may return a non-empty redirect URL.
	LogoutConfirmer interface {
		ConfirmLogout(w http.ResponseWriter, r *http.Request, user User) (string, error)
	}

	LogoutConfirmerFunc func(w http.ResponseWriter, r *http.Request, user User) (string, error)

	// LoginURLFormatter builds the external login URL from the absolute
	// callback URL.
	LoginURLFormatter func(callbackURL, rootPath string) string

	// ErrorHandler receives every error that aborts a request.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

	// Recorder observes the outcome of every request handled by the gate.
	Recorder interface {
		Observe(route Route, outcome Outcome)
	}

	Options struct {
		LoginPath         string
		LoginCallbackPath string
		LogoutPath        string
		UserField         string
		RootPath          string

		LoginURLFormatter LoginURLFormatter
		GetUser           UserLookup
		LoginCallback     LoginConfirmer
		LogoutCallback    LogoutConfirmer

		Session      SessionFunc
		ErrorHandler ErrorHandler
		Recorder     Recorder

		// TrustForwardedProto uses X-Forwarded-Proto as the scheme of the
		// callback URL.
		TrustForwardedProto bool
	}

	// config is the normalized, read-only version of Options.
	config struct {
		loginPath         string
		loginCallbackPath string
		logoutPath        string
		userField         string
		rootPath          string

		match             Matcher
		loginURLFormatter LoginURLFormatter
		getUser           UserLookup
		loginCallback     LoginConfirmer
		logoutCallback    LogoutConfirmer
		session           SessionFunc
		errorHandler      ErrorHandler
		recorder          Recorder

		trustForwardedProto bool
	}

	nopRecorder struct{}
)

const (
	DefaultLoginPath  = "/login"
	DefaultLogoutPath = "/logout"
	DefaultUserField  = "user"

	// LoginRefererField holds the return-to path between the login
	// entry and the login callback.
	LoginRefererField = "_loginReferer"
)

func (f UserLookupFunc) GetUser(r *http.Request) (User, error) {
	return f(r)
}

func (f LoginConfirmerFunc) ConfirmLogin(r *http.Request, user User) (User, string, error) {
	return f(r, user)
}

func (f LogoutConfirmerFunc) ConfirmLogout(w http.ResponseWriter, r *http.Request, user User) (string, error) {
	return f(w, r, user)
}

func (nopRecorder) Observe(Route, Outcome) {}

// PassThroughLogin keeps the user and does not override the redirect.
var PassThroughLogin = LoginConfirmerFunc(func(_ *http.Request, user User) (User, string, error) {
	return user, "", nil
})

// PlainLogout does nothing and does not override the redirect.
var PlainLogout = LogoutConfirmerFunc(func(http.ResponseWriter, *http.Request, User) (string, error) {
	return "", nil
})

// SessionFromContext reads the session attached by session.Middleware.
func SessionFromContext(r *http.Request) Session {
	v := session.FromRequest(r)
	if v == nil {
		return nil
	}
	return v
}

// DefaultErrorHandler logs err and answers with a 500.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	log := logutil.FromRequest(r)
	log.Error().Err(err).Msg("Authentication flow failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func newConfig(match Matcher, opts Options) (*config, error) {
	if match == nil {
		return nil, InvalidOptions{Field: "matcher", Reason: "is required"}
	}
	if opts.GetUser == nil {
		return nil, InvalidOptions{Field: "GetUser", Reason: "is required"}
	}
	if opts.LoginURLFormatter == nil {
		return nil, InvalidOptions{Field: "LoginURLFormatter", Reason: "is required"}
	}
	c := &config{
		loginPath:           opts.LoginPath,
		loginCallbackPath:   opts.LoginCallbackPath,
		logoutPath:          opts.LogoutPath,
		userField:           opts.UserField,
		rootPath:            strings.TrimRight(opts.RootPath, "/"),
		match:               match,
		loginURLFormatter:   opts.LoginURLFormatter,
		getUser:             opts.GetUser,
		loginCallback:       opts.LoginCallback,
		logoutCallback:      opts.LogoutCallback,
		session:             opts.Session,
		errorHandler:        opts.ErrorHandler,
		recorder:            opts.Recorder,
		trustForwardedProto: opts.TrustForwardedProto,
	}
	if c.loginPath == "" {
		c.loginPath = DefaultLoginPath
	}
	if c.loginCallbackPath == "" {
		c.loginCallbackPath = c.loginPath + "/callback"
	}
	if c.logoutPath == "" {
		c.logoutPath = DefaultLogoutPath
	}
	if c.userField == "" {
		c.userField = DefaultUserField
	}
	if c.loginCallback == nil {
		c.loginCallback = PassThroughLogin
	}
	if c.logoutCallback == nil {
		c.logoutCallback = PlainLogout
	}
	if c.session == nil {
		c.session = SessionFromContext
	}
	if c.errorHandler == nil {
		c.errorHandler = DefaultErrorHandler
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	for _, p := range []struct{ field, value string }{
		{"LoginPath", c.loginPath},
		{"LoginCallbackPath", c.loginCallbackPath},
		{"LogoutPath", c.logoutPath},
	} {
		if !strings.HasPrefix(p.value, "/") {
			return nil, InvalidOptions{Field: p.field, Reason: "must start with /"}
		}
	}
	if c.rootPath != "" && !strings.HasPrefix(c.rootPath, "/") {
		return nil, InvalidOptions{Field: "RootPath", Reason: "must start with /"}
	}
	return c, nil
}

// home is where clients go when no better destination is known.
func (c *config) home() string {
	return c.rootPath + "/"
}
