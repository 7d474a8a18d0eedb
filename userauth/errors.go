package userauth

import (
	"errors"
	"fmt"
)

type (
	InvalidOptions struct {
		Field  string
		Reason string
	}

	// IdentityLookupError wraps a failure returned by UserLookup.
	IdentityLookupError struct {
		cause error
	}

	// LoginConfirmationError wraps a failure returned by LoginConfirmer,
	// the session stays unauthenticated.
	LoginConfirmationError struct {
		cause error
	}

	// LogoutConfirmationError wraps a failure returned by
	// LogoutConfirmer, the session stays authenticated.
	LogoutConfirmationError struct {
		cause error
	}
)

var (
	ErrNoSession = errors.New("userauth: request has no session attached")
)

func (i InvalidOptions) Error() string {
	return fmt.Sprintf("userauth: option %v %v", i.Field, i.Reason)
}

func (e IdentityLookupError) Error() string {
	return fmt.Sprintf("userauth: unable to get user, cause %v", e.cause)
}

func (e IdentityLookupError) Unwrap() error { return e.cause }

func (e LoginConfirmationError) Error() string {
	return fmt.Sprintf("userauth: login callback failed, cause %v", e.cause)
}

func (e LoginConfirmationError) Unwrap() error { return e.cause }

func (e LogoutConfirmationError) Error() string {
	return fmt.Sprintf("userauth: logout callback failed, cause %v", e.cause)
}

func (e LogoutConfirmationError) Unwrap() error { return e.cause }
