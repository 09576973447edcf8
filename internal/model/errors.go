package model

import "errors"

// Troca command failures. Callers match them with errors.Is; the returned
// error usually wraps one of these with detail.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidState       = errors.New("invalid state")
	ErrItemUnavailable    = errors.New("item unavailable")
	ErrSelfTrade          = errors.New("self trade")
	ErrConflictDetected   = errors.New("conflict detected")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrInvalidInput marks a request the caller can fix, such as an unknown
// filter value or an incomplete item form.
var ErrInvalidInput = errors.New("invalid input")

// ErrEmailTaken is returned when an active account already uses the email.
var ErrEmailTaken = errors.New("email already registered")
