// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// LowConfidenceCutoff flags records whose confidence is below it.
	LowConfidenceCutoff float64 `koanf:"low_confidence_cutoff"`
	// OverParticipationEventThreshold flags High-frequency records with more events.
	OverParticipationEventThreshold int `koanf:"over_participation_event_threshold"`

	// PipelineURL is the base URL of the external analysis service.
	// Empty disables analysis requests.
	PipelineURL string `koanf:"pipeline_url"`
	// PipelineTimeoutMS bounds a single pipeline fetch.
	PipelineTimeoutMS int `koanf:"pipeline_timeout_ms"`
	// JobQueueSize bounds the in-memory analysis job queue.
	JobQueueSize int `koanf:"job_queue_size"`
	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many job ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                        "info",
		LogFormat:                       "text",
		Addr:                            ":9080",
		LowConfidenceCutoff:             0.70,
		OverParticipationEventThreshold: 10,
		PipelineTimeoutMS:               30_000,
		JobQueueSize:                    1_000,
		WorkerCount:                     runtime.NumCPU(),
		DedupeSize:                      10_000,
	}
}

// PipelineTimeout returns PipelineTimeoutMS as a duration.
func (c *Config) PipelineTimeout() time.Duration {
	return time.Duration(c.PipelineTimeoutMS) * time.Millisecond
}

// Validate checks values that would otherwise fail deep inside the service.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LowConfidenceCutoff < 0 || c.LowConfidenceCutoff > 1:
		return fmt.Errorf("%w: low_confidence_cutoff must be in [0,1], got %v", ErrInvalidConfig, c.LowConfidenceCutoff)
	case c.OverParticipationEventThreshold < 0:
		return fmt.Errorf("%w: over_participation_event_threshold must be >= 0, got %d", ErrInvalidConfig, c.OverParticipationEventThreshold)
	case c.PipelineTimeoutMS <= 0:
		return fmt.Errorf("%w: pipeline_timeout_ms must be > 0, got %d", ErrInvalidConfig, c.PipelineTimeoutMS)
	}
	return nil
}
