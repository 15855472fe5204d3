// Package remote is the HTTP client for the document extraction service.
// The service is consumed, never implemented, here: liveness probe, multipart
// upload, and a processing call that returns the extracted payload.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dev112317/stryker-assessment/internal/entity"
)

// UploadError is a terminal remote-path failure during document submission.
type UploadError struct {
	StatusCode int
	StatusText string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %s", e.StatusText)
}

// ProcessError is a terminal remote-path failure during extraction.
type ProcessError struct {
	StatusCode int
	StatusText string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("processing failed: %s", e.StatusText)
}

// UploadResult is the service's response to a document submission.
type UploadResult struct {
	DocumentID   string `json:"document_id"`
	DetectedType string `json:"detected_type,omitempty"`
	TypeMismatch bool   `json:"type_mismatch,omitempty"`
}

// ProcessResult carries the extracted field map and the service's confidence.
type ProcessResult struct {
	Data            map[string]any `json:"data"`
	ConfidenceScore float64        `json:"confidence_score"`
}

// Client talks to one extraction service instance. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for the given base URL. The base URL is injected
// by the caller; the client never reads configuration itself.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string { return c.baseURL }

// Health reports whether the service is reachable. Any transport failure or
// non-2xx response maps to false; this call never returns an error. The
// client timeout bounds how long an unreachable service can stall a run.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("remote.health.unreachable", "url", c.baseURL, "error", err)
		return false
	}
	defer c.closeBody(resp.Body)
	ok := resp.StatusCode/100 == 2
	c.logger.Debug("remote.health", "status", resp.StatusCode, "live", ok)
	return ok
}

// Upload submits the document bytes and declared type as multipart form data.
func (c *Client) Upload(ctx context.Context, src entity.SourceFile, documentType string) (*UploadResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", src.Name)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := fw.Write(src.Content); err != nil {
		return nil, fmt.Errorf("write multipart: %w", err)
	}
	if err := mw.WriteField("document_type", documentType); err != nil {
		return nil, fmt.Errorf("write multipart field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("remote.upload.request",
		"req_id", reqID,
		"file", src.Name,
		"size", src.Size,
		"document_type", documentType,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("remote.upload.send_error", "req_id", reqID, "error", err)
		return nil, err
	}
	defer c.closeBody(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	c.logger.Info("remote.upload.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &UploadError{StatusCode: resp.StatusCode, StatusText: statusText(resp)}
	}

	var out UploadResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if out.DocumentID == "" {
		return nil, &UploadError{StatusCode: resp.StatusCode, StatusText: "missing document_id"}
	}
	return &out, nil
}

// Process asks the service to extract the uploaded document's fields.
func (c *Client) Process(ctx context.Context, documentID string) (*ProcessResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	url := fmt.Sprintf("%s/process/%s", c.baseURL, documentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("remote.process.send_error", "req_id", reqID, "document_id", documentID, "error", err)
		return nil, err
	}
	defer c.closeBody(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	c.logger.Info("remote.process.response",
		"req_id", reqID,
		"document_id", documentID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &ProcessError{StatusCode: resp.StatusCode, StatusText: statusText(resp)}
	}

	var out ProcessResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode process response: %w", err)
	}
	return &out, nil
}

func (c *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Warn("remote.response_body_close_error", "error", err)
	}
}

func statusText(resp *http.Response) string {
	if t := http.StatusText(resp.StatusCode); t != "" {
		return fmt.Sprintf("%d %s", resp.StatusCode, t)
	}
	return resp.Status
}
