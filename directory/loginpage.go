package directory

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/andrebq/userauth/internal/logutil"
)

var (
	loginForm = template.Must(template.New("login").Parse(`<!doctype html>
<html><body>
<h1>Mock login</h1>
<form method="get">
<input type="hidden" name="redirect" value="{{.Redirect}}">
<label>Login <input type="text" name="login" autofocus></label>
<button type="submit">Sign in</button>
</form>
</body></html>
`))
)

// LoginPage is the external login provider of the demo: it issues a
// ticket for the chosen login and sends the browser to the callback URL
// given in the redirect parameter.
func (d *Directory) LoginPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logutil.FromRequest(r)
		callback := r.URL.Query().Get("redirect")
		if callback == "" {
			http.Error(w, "missing redirect parameter", http.StatusBadRequest)
			return
		}
		target, err := url.Parse(callback)
		if err != nil {
			http.Error(w, "invalid redirect parameter", http.StatusBadRequest)
			return
		}
		login := r.URL.Query().Get("login")
		if login == "" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			err = loginForm.Execute(w, struct{ Redirect string }{callback})
			if err != nil {
				log.Error().Err(err).Msg("Unable to render login form")
			}
			return
		}
		ticket, err := d.IssueTicket(r.Context(), login)
		var unknown UnknownLogin
		if errors.As(err, &unknown) {
			http.Error(w, unknown.Error(), http.StatusForbidden)
			return
		} else if err != nil {
			log.Error().Err(err).Str("login", login).Msg("Unable to issue login ticket")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		q := target.Query()
		q.Set("ticket", ticket)
		target.RawQuery = q.Encode()
		w.Header().Set("Location", target.String())
		w.WriteHeader(http.StatusFound)
	})
}
