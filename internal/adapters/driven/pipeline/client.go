// Package pipeline submits staged files to the downstream ingestion service.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/logger"
	"github.com/aganswers/drivesync/internal/retry"
)

// Ensure Client implements the interface.
var _ driven.IngestionPipeline = (*Client)(nil)

// maxErrorBody bounds how much of a rejection body is kept in the error.
const maxErrorBody = 512

// request is the submission payload.
type request struct {
	ProjectID        string   `json:"project_id"`
	ReadableFilename string   `json:"readable_filename"`
	S3Paths          []string `json:"s3_paths"`
}

// Client posts ingestion jobs as JSON.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewClient creates a pipeline client. Transient failures are retried by
// the retry transport; the timeout covers all attempts.
func NewClient(s domain.IngestSettings, base http.RoundTripper) (*Client, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("%w: INGEST_URL is not set", domain.ErrConfiguration)
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := retry.NewClient(retry.DefaultPolicy(), base)
	hc.Timeout = timeout
	return &Client{url: s.URL, apiKey: s.APIKey, http: hc}, nil
}

// Submit enqueues one job.
func (c *Client) Submit(ctx context.Context, job driven.IngestionJob) error {
	body, err := json.Marshal(request{
		ProjectID:        job.ProjectID,
		ReadableFilename: job.DisplayName,
		S3Paths:          []string{job.BlobKey},
	})
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: submit %s: %w", domain.ErrTransport, job.DisplayName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", domain.ErrSubmissionRejected, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.Debug("submitted %s (%s) for project %s", job.DisplayName, job.BlobKey, job.ProjectID)
	return nil
}
