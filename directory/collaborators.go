package directory

import (
	"errors"
	"net/http"
	"time"

	"github.com/andrebq/userauth/userauth"
)

var (
	_ userauth.UserLookup      = (*Directory)(nil)
	_ userauth.LoginConfirmer  = (*Directory)(nil)
	_ userauth.LogoutConfirmer = (*Directory)(nil)
)

// Record is the session representation of an account.
func (a Account) Record() map[string]interface{} {
	return map[string]interface{}{
		"id":    a.ID,
		"login": a.Login,
		"name":  a.DisplayName,
	}
}

// GetUser redeems the ticket query parameter. Requests without a valid
// ticket are anonymous, only storage failures are errors.
func (d *Directory) GetUser(r *http.Request) (userauth.User, error) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		return nil, nil
	}
	login, found, err := d.redeem(ticket)
	if err != nil || !found {
		return nil, err
	}
	acc, err := d.Lookup(r.Context(), login)
	var unknown UnknownLogin
	if errors.As(err, &unknown) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return acc.Record(), nil
}

// ConfirmLogin stamps the last login time of the account.
func (d *Directory) ConfirmLogin(r *http.Request, user userauth.User) (userauth.User, string, error) {
	login, err := loginOf(user)
	if err != nil {
		return nil, "", err
	}
	now := time.Now()
	if err := d.touch(r.Context(), login, now); err != nil {
		return nil, "", err
	}
	record := user.(map[string]interface{})
	out := make(map[string]interface{}, len(record)+1)
	for k, v := range record {
		out[k] = v
	}
	out["loginAt"] = now.Unix()
	return out, "", nil
}

// ConfirmLogout records the logout and tags the response with the login
// that left.
func (d *Directory) ConfirmLogout(w http.ResponseWriter, r *http.Request, user userauth.User) (string, error) {
	login, err := loginOf(user)
	if err != nil {
		return "", err
	}
	if err := d.recordLogout(r.Context(), login, time.Now()); err != nil {
		return "", err
	}
	w.Header().Set("X-Logout", login)
	return "", nil
}

func loginOf(user userauth.User) (string, error) {
	record, ok := user.(map[string]interface{})
	if !ok {
		return "", InvalidRecord{Record: user}
	}
	login, ok := record["login"].(string)
	if !ok || login == "" {
		return "", InvalidRecord{Record: user}
	}
	return login, nil
}
