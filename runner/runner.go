// Package runner is the HTTP client for the remote execution backend. It
// submits assembled flow graphs, streams execution events over SSE, and
// answers catalog probes for preflight checks.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/snowflowhq/snowflow/config"
	"github.com/snowflowhq/snowflow/flow"
	"github.com/snowflowhq/snowflow/internal/tlsutil"
	"github.com/snowflowhq/snowflow/types"
)

// RunRequest carries a validated flow definition to the backend.
type RunRequest struct {
	Definition *flow.Definition `json:"definition"`
	Prompt     string           `json:"prompt,omitempty"`
	WorkflowID string           `json:"workflow_id,omitempty"`
	TenantID   string           `json:"tenant_id,omitempty"`
}

// RunResult is the backend's response to a blocking run.
type RunResult struct {
	RunID    string          `json:"run_id"`
	Status   string          `json:"status"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration,omitempty"`
}

// Event is a single execution event from the backend stream. Err is set on
// transport or decode failures; the channel closes after delivering it.
type Event struct {
	RunID     string          `json:"run_id,omitempty"`
	Type      string          `json:"type"`
	NodeID    string          `json:"node_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	Err       error           `json:"-"`
}

// Client talks to the execution backend. Safe for concurrent use.
type Client struct {
	baseURL      string
	authToken    string
	maxRetries   int
	client       *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// NewClient builds a backend client from configuration. The stream client
// carries no request timeout; stream lifetime is bounded by the caller's
// context and cfg.StreamTimeout.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		authToken:    cfg.AuthToken,
		maxRetries:   cfg.MaxRetries,
		client:       tlsutil.BackendClient(timeout),
		streamClient: tlsutil.StreamClient(),
		logger:       logger.With(zap.String("component", "runner")),
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

func (c *Client) buildHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// Run submits a flow for blocking execution. Retries transient backend
// failures (5xx, connection errors) up to MaxRetries with linear backoff.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run request: %w", err)
	}

	var lastErr error
	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
			c.logger.Debug("retrying run submission", zap.Int("attempt", attempt))
		}

		result, err := c.doRun(ctx, payload)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !types.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) doRun(ctx context.Context, payload []byte) (*RunResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/run"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.buildHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.statusError(resp)
	}

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, types.NewError(types.ErrBackendUnavailable, "failed to decode backend response").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).WithRetryable(true)
	}
	return &result, nil
}

// Stream submits a flow for streaming execution and returns a channel of
// events. The channel closes on stream end, [DONE] marker, context
// cancellation, or transport error (after delivering an Event with Err set).
func (c *Client) Stream(ctx context.Context, req *RunRequest) (<-chan Event, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/run/stream"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.buildHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, c.statusError(resp)
	}

	return parseSSE(ctx, resp.Body, c.logger), nil
}

// parseSSE reads data: lines from an SSE body and decodes each into an Event.
func parseSSE(ctx context.Context, body io.ReadCloser, logger *zap.Logger) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer body.Close()
		defer close(ch)
		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					select {
					case <-ctx.Done():
					case ch <- Event{Err: types.NewError(types.ErrBackendUnavailable, "stream read failed").
						WithCause(err).WithRetryable(true)}:
					}
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				logger.Warn("skipping malformed stream event", zap.Error(err))
				continue
			}
			select {
			case <-ctx.Done():
				return
			case ch <- event:
			}
		}
	}()
	return ch
}

// Ping checks backend liveness.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.buildHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}
	return nil
}

func (c *Client) transportError(err error) error {
	code := types.ErrBackendUnavailable
	if uerr, ok := err.(*url.Error); ok && uerr.Timeout() {
		code = types.ErrBackendTimeout
	}
	return types.NewError(code, "backend request failed").
		WithCause(err).WithHTTPStatus(http.StatusBadGateway).WithRetryable(true)
}

func (c *Client) statusError(resp *http.Response) error {
	msg := readErrorMessage(resp.Body)
	e := types.NewError(types.ErrBackendUnavailable, msg).WithHTTPStatus(http.StatusBadGateway)
	switch {
	case resp.StatusCode == http.StatusGatewayTimeout:
		e.Code = types.ErrBackendTimeout
		e.Retryable = true
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		e.Retryable = true
	default:
		e.Code = types.ErrInvalidRequest
		e.HTTPStatus = resp.StatusCode
	}
	return e
}

// readErrorMessage extracts a human-readable message from an error body.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "backend returned an error"
	}
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(data, &envelope) == nil {
		for _, s := range []string{envelope.Error, envelope.Message, envelope.Detail} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(data))
}
