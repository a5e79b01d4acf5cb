package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownEditKind = errors.New("unknown edit kind")
)
