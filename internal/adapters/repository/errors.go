package repository

import "errors"

// Sentinel kinds for store errors not covered by the domain kinds.
var (
	ErrEmptySessionID = errors.New("session id must not be empty")
)
