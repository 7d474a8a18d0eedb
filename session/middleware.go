package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/andrebq/userauth/internal/logutil"
)

type (
	Config struct {
		// CookieName defaults to DefaultCookieName
		CookieName string
		// Path defaults to "/"
		Path   string
		Secure bool
	}

	sessionWriter struct {
		http.ResponseWriter
		values      *Values
		cookie      *http.Cookie
		wroteHeader bool
	}
)

const (
	DefaultCookieName = "userauth.sid"
)

// Middleware attaches the client session to every request passing
// through it.
func Middleware(store Store, cfg Config) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logutil.FromRequest(r)
			values, err := load(r, store, cfg.CookieName)
			if err != nil {
				log.Error().Err(err).Msg("Unable to load session")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			sw := &sessionWriter{
				ResponseWriter: w,
				values:         values,
				cookie: &http.Cookie{
					Name:     cfg.CookieName,
					Value:    values.ID(),
					Path:     cfg.Path,
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				},
			}
			next.ServeHTTP(sw, r.WithContext(WithValues(r.Context(), values)))
			sw.beforeHeader()
			if !values.Dirty() {
				return
			}
			err = store.Save(r.Context(), values.ID(), values.snapshot())
			if err != nil {
				log.Error().Err(err).Str("session.id", values.ID()).Msg("Unable to persist session")
			}
		})
	}
}

func load(r *http.Request, store Store, cookieName string) (*Values, error) {
	c, err := r.Cookie(cookieName)
	if err == nil && c.Value != "" {
		data, err := store.Load(r.Context(), c.Value)
		switch {
		case err == nil:
			return newValues(c.Value, data, false), nil
		case errors.Is(err, ErrNotFound):
		default:
			var corrupted CorruptedSession
			if !errors.As(err, &corrupted) {
				return nil, err
			}
		}
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	return newValues(id, nil, true), nil
}

func newID() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

func (w *sessionWriter) beforeHeader() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if w.values.IsNew() && w.values.Dirty() {
		http.SetCookie(w.ResponseWriter, w.cookie)
	}
}

func (w *sessionWriter) WriteHeader(statusCode int) {
	w.beforeHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.beforeHeader()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
