package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/andrebq/userauth/directory"
	"github.com/andrebq/userauth/internal/logutil"
	"github.com/andrebq/userauth/internal/lua/hooks"
	"github.com/andrebq/userauth/internal/metrics"
	"github.com/andrebq/userauth/session"
	"github.com/andrebq/userauth/userauth"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
)

type (
	Config struct {
		DataDir string
		// SessionStore is either "memory" (default) or "sqlite"
		SessionStore    string
		SessionLifetime time.Duration
		// Protect selects the guarded paths, defaults to DefaultProtect
		Protect *regexp.Regexp
		// Gate carries the paths and flags of the authentication gate,
		// collaborators are filled by New.
		Gate userauth.Options
		// HooksFile is an optional lua script overriding the directory
		// collaborators.
		HooksFile string
		// Registry defaults to a fresh registry
		Registry *prometheus.Registry
		// Upstream receives the requests not handled by the demo routes,
		// with the session login in ForwardedUserHeader.
		Upstream *url.URL
	}

	// App is the demo host: a public home page, a guarded user area and
	// a mock login provider backed by the directory.
	App struct {
		handler   http.Handler
		directory *directory.Directory
		closers   []io.Closer
	}

	UnknownSessionStore struct {
		Name string
	}
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	DefaultSessionLifetime = 24 * time.Hour
	MockLoginPath          = "/mocklogin"
)

var (
	DefaultProtect = regexp.MustCompile(`^/user(/|$)`)
)

func (u UnknownSessionStore) Error() string {
	return fmt.Sprintf("session store %q is not supported, use %v or %v", u.Name, StoreMemory, StoreSQLite)
}

// New opens the directory and the session store under cfg.DataDir and
// wires them to the authentication gate.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.SessionLifetime == 0 {
		cfg.SessionLifetime = DefaultSessionLifetime
	}
	if cfg.Protect == nil {
		cfg.Protect = DefaultProtect
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	app := &App{}
	var err error
	app.directory, err = directory.Open(ctx, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("unable to open directory, cause %w", err)
	}
	app.closers = append(app.closers, app.directory)

	store, err := openStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, store)

	recorder, err := metrics.NewRecorder(cfg.Registry, "userauth")
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("unable to register metrics, cause %w", err)
	}

	opts := cfg.Gate
	opts.Recorder = recorder
	err = app.collaborators(&opts, cfg.HooksFile)
	if err != nil {
		app.Close()
		return nil, err
	}
	rootPath := strings.TrimRight(opts.RootPath, "/")
	opts.LoginURLFormatter = func(callbackURL, root string) string {
		return root + MockLoginPath + "?redirect=" + userauth.EncodeURIComponent(callbackURL)
	}
	gate, err := userauth.New(userauth.MatchRegexp(cfg.Protect), opts)
	if err != nil {
		app.Close()
		return nil, err
	}

	userField := opts.UserField
	if userField == "" {
		userField = userauth.DefaultUserField
	}
	router := httprouter.New()
	router.Handler("GET", MockLoginPath, app.directory.LoginPage())
	router.Handler("GET", "/metrics", metrics.Handler(cfg.Registry))
	if cfg.Upstream != nil {
		// delegate everything else to the upstream application
		router.NotFound = upstreamProxy(cfg.Upstream, userField)
	} else {
		router.HandlerFunc("GET", "/", home)
		router.HandlerFunc("GET", "/user/*rest", userInfo(userField))
	}

	var handler http.Handler = gate.Protect(router)
	handler = session.Middleware(store, session.Config{Path: rootPath + "/"})(handler)
	if rootPath != "" {
		handler = http.StripPrefix(rootPath, handler)
	}
	app.handler = logutil.Middleware(logutil.GetOrDefault(ctx))(handler)
	return app, nil
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) Directory() *directory.Directory {
	return a.directory
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) collaborators(opts *userauth.Options, hooksFile string) error {
	fallback := hooks.Collaborators{
		GetUser: a.directory,
		Login:   a.directory,
		Logout:  a.directory,
	}
	if hooksFile == "" {
		opts.GetUser = fallback.GetUser
		opts.LoginCallback = fallback.Login
		opts.LogoutCallback = fallback.Logout
		return nil
	}
	source, err := os.ReadFile(hooksFile)
	if err != nil {
		return fmt.Errorf("unable to read hooks file %v, cause %w", hooksFile, err)
	}
	script, err := hooks.Load(filepath.Base(hooksFile), string(source), fallback)
	if err != nil {
		return err
	}
	opts.GetUser = script
	opts.LoginCallback = script
	opts.LogoutCallback = script
	return nil
}

type storeCloser interface {
	session.Store
	io.Closer
}

func openStore(ctx context.Context, cfg Config) (storeCloser, error) {
	switch cfg.SessionStore {
	case "", StoreMemory:
		return session.NewMemoryStore(cfg.SessionLifetime)
	case StoreSQLite:
		return session.OpenSQLStore(ctx, cfg.DataDir)
	}
	return nil, UnknownSessionStore{Name: cfg.SessionStore}
}

func home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "userauth demo: visit /user/ to sign in")
}

func userInfo(userField string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logutil.FromRequest(r)
		values := session.FromRequest(r)
		var user interface{}
		if values != nil {
			user = values.Get(userField)
		}
		if user == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(struct {
			User interface{} `json:"user"`
			Path string      `json:"path"`
		}{User: user, Path: httprouter.ParamsFromContext(r.Context()).ByName("rest")})
		if err != nil {
			log.Error().Err(err).Msg("Unable to encode user")
		}
	}
}
