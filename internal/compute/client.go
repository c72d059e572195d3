package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"ghbridge/internal/domain"
)

// defaultTimeout bounds one job submission when the config leaves it unset.
const defaultTimeout = 30 * time.Second

// Client submits synchronous Grasshopper evaluation jobs. One submission,
// one response, no automatic retries: solved definitions may have side
// effects, so retry policy belongs to the caller. Safe for concurrent use;
// an optional semaphore caps in-flight jobs for backends that cannot serve
// parallel work.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	sem     chan struct{}
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the slog logger. Nil uses slog.Default().
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying HTTP client (used by tests).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient builds a client from config.
func NewClient(cfg domain.ComputeConfig, opts ...ClientOption) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		http:    &http.Client{},
	}
	if cfg.MaxInFlight > 0 {
		c.sem = make(chan struct{}, cfg.MaxInFlight)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Evaluate submits one job and waits for its result within the configured
// timeout. Failures map to distinct kinds: connection problems are
// backend_unavailable, elapsed deadlines are backend_timeout, and anything
// malformed on the wire is backend_protocol_error. A non-success status
// whose body still carries values is processed as a success, matching the
// compute server's habit of reporting 500 for definitions that warn.
func (c *Client) Evaluate(ctx context.Context, pointer string, values []Param) (*Result, error) {
	if c.sem != nil {
		select {
		case c.sem <- struct{}{}:
			defer func() { <-c.sem }()
		case <-ctx.Done():
			return nil, timeoutOrUnavailable(ctx.Err())
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(evaluateRequest{Pointer: pointer, Values: values})
	if err != nil {
		return nil, domain.WrapToolError(domain.KindInputMapping, err, "job encode for %s", pointer)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/grasshopper", bytes.NewReader(body))
	if err != nil {
		return nil, domain.WrapToolError(domain.KindBackendUnavailable, err, "compute request for %s", pointer)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("RhinoComputeKey", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, timeoutOrUnavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapToolError(domain.KindBackendProtocol, err, "compute response read for %s", pointer)
	}

	var result Result
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && len(result.Values) > 0 {
			c.log().Warn("compute returned non-success status with values; processing anyway",
				"status", resp.StatusCode, "pointer", pointer)
		} else {
			return nil, domain.NewToolError(domain.KindBackendProtocol,
				"compute returned HTTP %d for %s", resp.StatusCode, pointer)
		}
	} else if decodeErr != nil {
		return nil, domain.WrapToolError(domain.KindBackendProtocol, decodeErr, "compute response decode for %s", pointer)
	}

	c.log().Debug("compute job finished", "pointer", pointer, "elapsed", time.Since(start))
	return &result, nil
}

// timeoutOrUnavailable classifies a transport-level failure.
func timeoutOrUnavailable(err error) *domain.ToolError {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapToolError(domain.KindBackendTimeout, err, "compute job did not finish in time")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.WrapToolError(domain.KindBackendTimeout, err, "compute job did not finish in time")
	}
	return domain.WrapToolError(domain.KindBackendUnavailable, err, "compute server unreachable")
}
