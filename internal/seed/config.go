package seed

import "time"

// Config holds configuration for a seed run.
type Config struct {
	BaseURL   string        // Base URL of the service
	SessionID string        // Target session; generated when empty
	File      string        // JSON batch to submit instead of the demo roster
	Analyze   bool          // Request pipeline analysis instead of loading a batch
	Timeout   time.Duration // HTTP request timeout
	Verbose   bool          // Log every record of the resulting session
}
