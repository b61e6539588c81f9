package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrRejected    = errors.New("connection rejected")
	ErrInvalidJSON = errors.New("Invalid JSON format") //nolint:staticcheck // shown to users verbatim
	ErrLocked      = errors.New("canvas is locked while an editor has focus")
	ErrLimit       = errors.New("limit reached")
	ErrInvalid     = errors.New("invalid input")
)
