// Package pipeline is the boundary to the external analysis service that turns
// class audio into finished participation batches. Transcription, diarization
// and scoring all happen on the other side; this package only fetches results.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

const (
	defaultTimeout  = 30 * time.Second
	maxErrorBodyLen = 512
)

// Fetcher retrieves a session's finished analysis batch. Failures are
// returned as *model.PipelineError. Fetchers never retry.
type Fetcher interface {
	Fetch(ctx context.Context, sessionID string) (model.Batch, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, sessionID string) (model.Batch, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, sessionID string) (model.Batch, error) {
	return f(ctx, sessionID)
}

// HTTPFetcher fetches batches with GET {baseURL}/sessions/{id}/analysis.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// Option applies a configuration option to the HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout bounds each fetch. It applies to a client given through
// WithHTTPClient too, regardless of option order; that client is copied,
// never modified.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewHTTPFetcher creates a fetcher for the service at baseURL.
func NewHTTPFetcher(baseURL string, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(f)
	}
	switch {
	case f.client == nil:
		timeout := f.timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		f.client = &http.Client{Timeout: timeout}
	case f.timeout > 0:
		c := *f.client
		c.Timeout = f.timeout
		f.client = &c
	}
	if f.logger == nil {
		f.logger = logger.Get().Named("pipeline")
	}
	return f
}

// Fetch performs one GET and decodes the batch.
func (f *HTTPFetcher) Fetch(ctx context.Context, sessionID string) (model.Batch, error) {
	start := time.Now()
	batch, err := f.fetch(ctx, sessionID)
	metrics.RecordPipelineFetch(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordPipelineError()
		f.logger.Warn(ctx, "analysis fetch failed",
			logger.String("session", sessionID),
			logger.Duration("took", time.Since(start)),
			logger.Error(err),
		)
		return model.Batch{}, &model.PipelineError{SessionID: sessionID, Err: err}
	}
	f.logger.Debug(ctx, "analysis fetched",
		logger.String("session", sessionID),
		logger.Int("records", len(batch.Records)),
		logger.Duration("took", time.Since(start)),
	)
	return batch, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, sessionID string) (model.Batch, error) {
	endpoint := f.baseURL + "/sessions/" + url.PathEscape(sessionID) + "/analysis"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Batch{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return model.Batch{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return model.Batch{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var batch model.Batch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return model.Batch{}, fmt.Errorf("decode batch: %w", err)
	}
	switch batch.Session.ID {
	case "":
		batch.Session.ID = sessionID
	case sessionID:
	default:
		return model.Batch{}, fmt.Errorf("batch is for session %q", batch.Session.ID)
	}
	return batch, nil
}
