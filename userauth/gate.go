package userauth

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/andrebq/userauth/internal/logutil"
)

type (
	// Gate is the authentication middleware. It is safe for concurrent
	// use, all per request state lives in the session.
	Gate struct {
		cfg *config
	}
)

// New validates opts, fills the defaults and returns a gate guarding
// the paths accepted by match.
func New(match Matcher, opts Options) (*Gate, error) {
	cfg, err := newConfig(match, opts)
	if err != nil {
		return nil, err
	}
	return &Gate{cfg: cfg}, nil
}

// Protect wraps next with the authentication flow.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := g.Route(r)
		if route == RouteUnguarded {
			g.cfg.recorder.Observe(route, OutcomePass)
			next.ServeHTTP(w, r)
			return
		}
		sess := g.cfg.session(r)
		if sess == nil {
			g.fail(w, r, route, ErrNoSession)
			return
		}
		var outcome Outcome
		var err error
		switch route {
		case RouteLoginEntry:
			outcome = g.loginEntry(w, r, sess)
		case RouteLoginCallback:
			outcome, err = g.loginCallback(w, r, sess)
		case RouteLogout:
			outcome, err = g.logout(w, r, sess)
		case RouteGuarded:
			outcome, err = g.guarded(w, r, sess, next)
		}
		if err != nil {
			g.fail(w, r, route, err)
			return
		}
		g.observe(r, route, outcome)
	})
}

func (g *Gate) loginEntry(w http.ResponseWriter, r *http.Request, sess Session) Outcome {
	c := g.cfg
	sess.Set(LoginRefererField, c.resolveReferer(r, c.loginPath))
	callbackURL := c.scheme(r) + "://" + r.Host + c.rootPath + c.loginCallbackPath
	Redirect(w, r, c.loginURLFormatter(callbackURL, c.rootPath), http.StatusFound)
	return OutcomeRedirect
}

func (g *Gate) loginCallback(w http.ResponseWriter, r *http.Request, sess Session) (Outcome, error) {
	c := g.cfg
	referer := c.home()
	if stored, ok := sess.Get(LoginRefererField).(string); ok && stored != "" {
		referer = stored
	}
	if truthy(sess.Get(c.userField)) {
		Redirect(w, r, referer, http.StatusFound)
		return OutcomeRedirect, nil
	}
	user, err := c.getUser.GetUser(r)
	if err != nil {
		return OutcomeError, IdentityLookupError{cause: err}
	}
	if !truthy(user) {
		Redirect(w, r, referer, http.StatusFound)
		return OutcomeRedirect, nil
	}
	loginUser, redirectURL, err := c.loginCallback.ConfirmLogin(r, user)
	if err != nil {
		return OutcomeError, LoginConfirmationError{cause: err}
	}
	outcome := c.storeUser(sess, loginUser)
	if redirectURL != "" {
		referer = redirectURL
	}
	Redirect(w, r, referer, http.StatusFound)
	return outcome, nil
}

func (g *Gate) logout(w http.ResponseWriter, r *http.Request, sess Session) (Outcome, error) {
	c := g.cfg
	referer := c.resolveReferer(r, c.logoutPath)
	user := sess.Get(c.userField)
	if !truthy(user) {
		Redirect(w, r, referer, http.StatusFound)
		return OutcomeRedirect, nil
	}
	redirectURL, err := c.logoutCallback.ConfirmLogout(w, r, user)
	if err != nil {
		return OutcomeError, LogoutConfirmationError{cause: err}
	}
	sess.Set(c.userField, nil)
	if redirectURL != "" {
		referer = redirectURL
	}
	Redirect(w, r, referer, http.StatusFound)
	return OutcomeLogout, nil
}

func (g *Gate) guarded(w http.ResponseWriter, r *http.Request, sess Session, next http.Handler) (Outcome, error) {
	c := g.cfg
	if truthy(sess.Get(c.userField)) {
		next.ServeHTTP(w, r)
		return OutcomePass, nil
	}
	user, err := c.getUser.GetUser(r)
	if err != nil {
		return OutcomeError, IdentityLookupError{cause: err}
	}
	if !truthy(user) {
		Redirect(w, r, c.loginRedirect(r), http.StatusFound)
		return OutcomeRedirect, nil
	}
	loginUser, redirectURL, err := c.loginCallback.ConfirmLogin(r, user)
	if err != nil {
		return OutcomeError, LoginConfirmationError{cause: err}
	}
	outcome := c.storeUser(sess, loginUser)
	if redirectURL != "" {
		Redirect(w, r, redirectURL, http.StatusFound)
		return outcome, nil
	}
	if outcome != OutcomeLogin {
		// the login callback dropped the user
		Redirect(w, r, c.loginRedirect(r), http.StatusFound)
		return OutcomeRedirect, nil
	}
	next.ServeHTTP(w, r)
	return outcome, nil
}

func (g *Gate) fail(w http.ResponseWriter, r *http.Request, route Route, err error) {
	g.observe(r, route, OutcomeError)
	g.cfg.errorHandler(w, r, err)
}

func (g *Gate) observe(r *http.Request, route Route, outcome Outcome) {
	g.cfg.recorder.Observe(route, outcome)
	log := logutil.FromRequest(r)
	log.Debug().Str("route", route.String()).Str("outcome", outcome.String()).Msg("Authentication gate")
}

func (c *config) storeUser(sess Session, user User) Outcome {
	if !truthy(user) {
		sess.Set(c.userField, nil)
		return OutcomeRedirect
	}
	sess.Set(c.userField, user)
	return OutcomeLogin
}

// loginRedirect points at the login entry, carrying the current URL as
// the return-to path.
func (c *config) loginRedirect(r *http.Request) string {
	return c.rootPath + c.loginPath + "?redirect=" + EncodeURIComponent(originalURL(r))
}

func (c *config) resolveReferer(r *http.Request, protectedPath string) string {
	referer := ResolveReferer(r, protectedPath)
	if referer == "/" {
		return c.home()
	}
	return referer
}

func (c *config) scheme(r *http.Request) string {
	if c.trustForwardedProto {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// originalURL is the request target as sent by the client, before any
// prefix stripping done by the host router.
func originalURL(r *http.Request) string {
	if strings.HasPrefix(r.RequestURI, "/") {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}
