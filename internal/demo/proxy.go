package demo

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/andrebq/userauth/session"
)

const (
	// ForwardedUserHeader carries the login of the session user to the
	// upstream application.
	ForwardedUserHeader = "X-Forwarded-User"
)

// upstreamProxy forwards every request the demo routes do not handle.
// Client supplied ForwardedUserHeader values are always dropped.
func upstreamProxy(upstream *url.URL, userField string) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Header.Del(ForwardedUserHeader)
		if login := sessionLogin(r, userField); login != "" {
			r.Header.Set(ForwardedUserHeader, login)
		}
	}
	return proxy
}

func sessionLogin(r *http.Request, userField string) string {
	values := session.FromRequest(r)
	if values == nil {
		return ""
	}
	switch user := values.Get(userField).(type) {
	case map[string]interface{}:
		if login, ok := user["login"]; ok && login != nil {
			return fmt.Sprint(login)
		}
	case string:
		return user
	}
	return ""
}
