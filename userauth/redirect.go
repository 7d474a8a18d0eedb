package userauth

import (
	"encoding/json"
	"net/http"
	"strings"
)

var (
	unauthorizedBody = mustJSON(map[string]string{"error": "401 Unauthorized"})
)

func mustJSON(v interface{}) []byte {
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return buf
}

// Redirect sends the client to url with a 302, or a 301 when status asks
// for it. Clients whose Accept header mentions json get a 401 with a
// JSON error body instead, they cannot follow a login redirect anyway.
func Redirect(w http.ResponseWriter, r *http.Request, url string, status int) {
	if status != http.StatusMovedPermanently {
		status = http.StatusFound
	}
	w.Header().Set("Location", url)
	accept := strings.Join(r.Header.Values("Accept"), ",")
	if strings.Contains(accept, "json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write(unauthorizedBody)
		return
	}
	w.WriteHeader(status)
}
