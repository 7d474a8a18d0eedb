package userauth

import "net/http"

type (
	Route byte

	Outcome byte
)

const (
	RouteUnguarded Route = iota
	RouteLoginEntry
	RouteLoginCallback
	RouteLogout
	RouteGuarded
)

const (
	// OutcomePass means the request reached the next handler untouched.
	OutcomePass Outcome = iota
	OutcomeRedirect
	// OutcomeLogin means a user was written to the session.
	OutcomeLogin
	// OutcomeLogout means the session user was cleared.
	OutcomeLogout
	OutcomeError
)

func (r Route) String() string {
	switch r {
	case RouteLoginEntry:
		return "login"
	case RouteLoginCallback:
		return "login_callback"
	case RouteLogout:
		return "logout"
	case RouteGuarded:
		return "guarded"
	default:
		return "unguarded"
	}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeLogin:
		return "login"
	case OutcomeLogout:
		return "logout"
	case OutcomeError:
		return "error"
	default:
		return "pass"
	}
}

// Route classifies the request. The login, callback and logout paths
// win over the matcher.
func (g *Gate) Route(r *http.Request) Route {
	return g.cfg.classify(r.URL.Path, r)
}

func (c *config) classify(path string, r *http.Request) Route {
	switch path {
	case c.loginPath:
		return RouteLoginEntry
	case c.loginCallbackPath:
		return RouteLoginCallback
	case c.logoutPath:
		return RouteLogout
	}
	if c.match.Match(path, r) {
		return RouteGuarded
	}
	return RouteUnguarded
}
