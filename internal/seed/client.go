package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

const errorBodyLimit = 512

// Client talks to the review service's HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client with timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Load replaces a session's records and returns the resulting summary.
func (c *Client) Load(ctx context.Context, batch model.Batch) (types.SessionReport, error) {
	var rep types.SessionReport
	err := c.do(ctx, http.MethodPut, "/sessions/"+url.PathEscape(batch.Session.ID)+"/records", batch, &rep)
	return rep, err
}

// RequestAnalysis asks the service to fetch a session from the pipeline.
func (c *Client) RequestAnalysis(ctx context.Context, sessionID string) (types.JobStatus, error) {
	var st types.JobStatus
	err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/analysis", nil, &st)
	return st, err
}

// Records returns the session's records.
func (c *Client) Records(ctx context.Context, sessionID string) ([]types.RecordView, error) {
	var out struct {
		Records []types.RecordView `json:"records"`
	}
	err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/records", nil, &out)
	return out.Records, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
