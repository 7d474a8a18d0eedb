package userauth

import (
	"net/http"
	"regexp"
	"strings"
)

type (
	// Matcher decides which paths require an authenticated session.
	Matcher interface {
		Match(path string, r *http.Request) bool
	}

	MatcherFunc func(path string, r *http.Request) bool

	regexpMatcher struct {
		re *regexp.Regexp
	}

	prefixMatcher []string
)

func (f MatcherFunc) Match(path string, r *http.Request) bool {
	return f(path, r)
}

// MatchRegexp guards every path accepted by re.
func MatchRegexp(re *regexp.Regexp) Matcher {
	return regexpMatcher{re: re}
}

// MatchPrefix guards every path starting with one of prefixes.
func MatchPrefix(prefixes ...string) Matcher {
	return prefixMatcher(append([]string(nil), prefixes...))
}

func (m regexpMatcher) Match(path string, _ *http.Request) bool {
	return m.re.MatchString(path)
}

func (m prefixMatcher) Match(path string, _ *http.Request) bool {
	for _, p := range m {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
