package userauth

import (
	"net/http"
	"strings"
)

// ResolveReferer returns the local path the client should return to.
//
// The candidate comes from the redirect query parameter, then from the
// Referer header. Anything that is not a local path, or that contains
// protectedPath, collapses to "/".
func ResolveReferer(r *http.Request, protectedPath string) string {
	candidate := "/"
	values := r.URL.Query()["redirect"]
	switch {
	case len(values) > 1:
		return "/"
	case len(values) == 1 && values[0] != "":
		candidate = values[0]
	case r.Header.Get("Referer") != "":
		candidate = r.Header.Get("Referer")
	}
	if !isLocalPath(candidate) {
		return "/"
	}
	if strings.Contains(candidate, protectedPath) {
		return "/"
	}
	return candidate
}

// isLocalPath rejects absolute and protocol relative URLs.
func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	return !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
