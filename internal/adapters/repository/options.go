package repository

import (
	"time"

	"github.com/okian/tally/internal/domain/validate"
)

// Option applies a configuration option to the InMemoryStore.
type Option func(*InMemoryStore)

// WithValidator sets the validator used on Load.
func WithValidator(v *validate.Validator) Option {
	return func(s *InMemoryStore) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithClock overrides time.Now for LoadedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
