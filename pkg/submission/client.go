package submission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-formctl/pkg/payload"
)

const (
	// HeaderRequestedWith marks the request as script-initiated so the backend
	// answers with JSON instead of a full page.
	HeaderRequestedWith = "X-Requested-With"
	// RequestedWithValue is the conventional marker value.
	RequestedWithValue = "XMLHttpRequest"

	maxReplyBytes = 1 << 20
)

// Request describes one submission.
type Request struct {
	URL     string
	Payload *payload.Payload
	// Header is merged over the defaults (marker header, Accept).
	Header http.Header
}

// Sender abstracts the transport so controllers can be tested without a
// network.
type Sender interface {
	Send(ctx context.Context, req Request) Result
}

// SenderFunc adapts a function into a Sender.
type SenderFunc func(ctx context.Context, req Request) Result

// Send delegates to the underlying function.
func (fn SenderFunc) Send(ctx context.Context, req Request) Result {
	return fn(ctx, req)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client (cookie jar, timeouts, transport).
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger routes transport diagnostics to logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) ClientOption {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(agent)
	}
}

// Client posts multipart payloads.
type Client struct {
	http      *http.Client
	logger    *slog.Logger
	userAgent string
}

var _ Sender = (*Client)(nil)

// NewClient builds a Client with a 30 second timeout by default.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Send performs a single POST. It never returns nil.
func (c *Client) Send(ctx context.Context, req Request) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(req.URL) == "" {
		return TransportFailure{Message: "missing submission url", Err: errors.New("submission: empty url")}
	}

	body := &bytes.Buffer{}
	p := req.Payload
	if p == nil {
		p = payload.New()
	}
	contentType, err := p.Encode(body)
	if err != nil {
		return TransportFailure{Message: "encode payload", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, body)
	if err != nil {
		return TransportFailure{Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderRequestedWith, RequestedWithValue)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("submission request failed", "url", req.URL, "error", err)
		return TransportFailure{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		c.logger.Error("submission reply unreadable", "url", req.URL, "status", resp.StatusCode, "error", err)
		return TransportFailure{Message: "read reply", Err: fmt.Errorf("read body: %w", err)}
	}

	result := Decode(resp.StatusCode, reply)
	c.logger.Debug("submission completed",
		"url", req.URL,
		"status", resp.StatusCode,
		"outcome", string(result.Kind()),
		"elapsed", time.Since(started),
	)
	return result
}
