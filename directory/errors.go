package directory

import "fmt"

type (
	UnknownLogin struct {
		Login string
	}

	InvalidLogin struct {
		Login string
	}

	// InvalidRecord is returned when a session user was not produced by
	// this directory.
	InvalidRecord struct {
		Record interface{}
	}
)

func (u UnknownLogin) Error() string {
	return fmt.Sprintf("login %v not found", u.Login)
}

func (i InvalidLogin) Error() string {
	return fmt.Sprintf("login %q must match %v", i.Login, reValidLogin.String())
}

func (i InvalidRecord) Error() string {
	return fmt.Sprintf("user record %T does not carry a login", i.Record)
}
