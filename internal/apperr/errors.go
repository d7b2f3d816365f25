// Package apperr defines error classes shared by the API-facing layers.
package apperr

import "errors"

var (
	// ErrNotFound reports an unknown command or resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalid reports a malformed request argument.
	ErrInvalid = errors.New("invalid argument")
)
