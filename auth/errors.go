package auth

import (
	"errors"
)

type (
	// ValidationError is returned when the caller sent incomplete input,
	// Msg is safe to show to the client.
	ValidationError struct {
		Msg string
	}
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	ErrUsernameTaken      = errors.New("auth: username already exists")
	ErrNoToken            = errors.New("auth: no token provided")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrForbidden          = errors.New("auth: role not allowed")
)

func (v ValidationError) Error() string {
	return v.Msg
}
