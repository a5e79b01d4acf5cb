package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/tally/internal/seed"
	"github.com/okian/tally/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout = 10 * time.Second
	runTimeout     = time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessionID = flag.String("session", "", "Session id (default: random uuid)")
		file      = flag.String("file", "", "JSON batch to submit instead of the demo roster")
		analyze   = flag.Bool("analyze", false, "Request pipeline analysis instead of loading a batch")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Log every record after loading")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg := &seed.Config{
		BaseURL:   *baseURL,
		SessionID: *sessionID,
		File:      *file,
		Analyze:   *analyze,
		Timeout:   *timeout,
		Verbose:   *verbose,
	}
	if err := seed.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seed failed", logger.Error(err))
		os.Exit(1)
	}
}
