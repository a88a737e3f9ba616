// Package remote talks to the uniguide backend. The backend is treated as an
// opaque store: every call is one HTTP request, retried once on transient
// failures.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
)

const (
	defaultTimeout = 30 * time.Second
	defaultBackoff = 500 * time.Millisecond
	maxBodyBytes   = 8 << 20
	maxErrorBody   = 512
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Token is sent as a bearer token when non-empty.
	Token string
	// Timeout bounds each attempt. Zero selects 30s.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transient failure.
	Retries int
	// Backoff is the wait before a retry. Zero selects 500ms.
	Backoff time.Duration
}

// Client is the RemoteStore client.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		timeout:    cfg.Timeout,
		retries:    max(cfg.Retries, 0),
		backoff:    cfg.Backoff,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.backoff <= 0 {
		c.backoff = defaultBackoff
	}
	return c
}

// request describes one logical call. The body is kept as bytes so a retry
// can resend it.
type request struct {
	op          string
	method      string
	path        string
	body        []byte
	contentType string
}

func jsonRequest(op, method, path string, v any) (request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return request{}, fmt.Errorf("%s: marshaling request: %w", op, err)
	}
	return request{op: op, method: method, path: path, body: body, contentType: "application/json"}, nil
}

// send runs r, retrying transient failures. Every attempt carries the same
// X-Request-ID.
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	requestID := uuid.NewString()

	var lastErr error
	for attempt := range c.retries + 1 {
		if attempt > 0 {
			c.logger.Debug("retrying request", "op", r.op, "request_id", requestID, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff):
			}
		}

		data, err := c.attempt(ctx, r, requestID)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var se *apperr.SyncError
		if !errors.As(err, &se) || !se.Temporary() || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, r request, requestID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", r.op, err)
	}
	c.setHeaders(req, r.contentType, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Sync(r.op, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Sync(r.op, 0, fmt.Errorf("reading response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", r.op, apperr.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, &apperr.ValidationError{Reason: errorDetail(data)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, apperr.Sync(r.op, resp.StatusCode, errors.New(errorDetail(data)))
	}
	return data, nil
}

func (c *Client) setHeaders(req *http.Request, contentType, requestID string) {
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// errorDetail extracts the message of an error body such as {"detail": "..."}.
func errorDetail(data []byte) string {
	var body struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		switch d := body.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if body.Error != "" {
			return body.Error
		}
	}
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	if s == "" {
		return "empty response"
	}
	return s
}

func decode(op string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Sync(op, http.StatusOK, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// isEmptyBody reports whether a response carries no document.
func isEmptyBody(data []byte) bool {
	switch strings.TrimSpace(string(data)) {
	case "", "{}", "null", "[]":
		return true
	}
	return false
}
