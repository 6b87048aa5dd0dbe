package auth

import "errors"

var (
	// ErrValidation is returned when a required field is empty.
	ErrValidation = errors.New("username and password are required")
	// ErrDuplicateUser is returned when signing up with a taken username.
	ErrDuplicateUser = errors.New("username already exists")
	// ErrUnknownUser is returned when logging in with an unregistered username.
	ErrUnknownUser = errors.New("no such user")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("incorrect password")
)
