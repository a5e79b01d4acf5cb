package seed

import "os"

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	os.Stdout.WriteString(`Tally Seed Tool
===============

Loads a participation batch into a running review service.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -session string
        Session id (default: random uuid)
  -file string
        JSON batch to submit instead of the demo roster
  -analyze
        Ask the service to fetch the session from the analysis pipeline
  -timeout duration
        HTTP request timeout (default 10s)
  -verbose
        Log every record after loading
  -help
        Show this help message

Examples:
  # Load the demo roster into a new session
  go run ./cmd/seed

  # Load a pipeline export into a named session
  go run ./cmd/seed -session wk3 -file week3.json -verbose
`)
}
