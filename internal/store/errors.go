package store

import "errors"

// Sentinel errors returned by store operations. The HTTP and websocket
// boundaries translate these into their transport's failure
// representation; nothing in the store is fatal to the process.
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidParams = errors.New("invalid params")
)
