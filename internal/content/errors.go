package content

import "errors"

// Errors returned by the content and gallery stores. Callers match them with
// errors.Is; the HTTP layer maps them to status codes.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrIO            = errors.New("io failure")
)
