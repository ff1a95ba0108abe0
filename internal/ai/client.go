// Package ai turns free-text answers from third-party model APIs into the
// application's structured fields. Every outbound call goes through Client,
// which never returns a Go error: transport failures and non-2xx statuses are
// reported as data on Response so callers can pick a local fallback.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storyia/internal/metrics"
)

const (
	// DefaultTimeout applies when a Request carries no timeout and ctx has no deadline.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "storyia"

	// maxResponseBytes bounds how much of a provider body is read.
	maxResponseBytes = 32 << 20
)

// Response is the outcome of one provider round trip. Err is set only for
// transport failures, in which case Status is 0.
type Response struct {
	Status int
	Body   []byte
	Err    error
}

// OK reports a 2xx answer.
func (r Response) OK() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300
}

// Reason describes a failed response in one short phrase.
func (r Response) Reason() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("status %d", r.Status)
}

// Request describes a single outbound call.
type Request struct {
	Provider    string
	Task        string
	Method      string
	URL         string
	APIKey      string
	ContentType string
	Body        []byte
	Timeout     time.Duration
}

// Client issues provider requests with a bounded timeout and records each
// round trip in the audit log and metrics.
type Client struct {
	http      *http.Client
	logger    *zap.Logger
	metrics   *metrics.AIMetrics
	userAgent string
}

// NewClient wraps httpClient. A nil httpClient uses a fresh http.Client; nil
// logger and metrics disable those hooks.
func NewClient(httpClient *http.Client, logger *zap.Logger, m *metrics.AIMetrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:      httpClient,
		logger:    logger,
		metrics:   m,
		userAgent: defaultUserAgent,
	}
}

// Do executes req. It never panics on transport errors and never returns them
// as a Go error.
func (c *Client) Do(ctx context.Context, req Request) Response {
	timeout := req.Timeout
	if timeout <= 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			timeout = DefaultTimeout
		}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	c.logger.Debug("request",
		zap.String("kind", "request"),
		zap.String("provider", req.Provider),
		zap.String("endpoint", req.Task),
		zap.String("url", req.URL),
		zap.Int("payload_bytes", len(req.Body)))

	start := time.Now()
	resp := c.roundTrip(ctx, method, req, body)
	elapsed := time.Since(start)

	c.metrics.RecordRequest(req.Provider, req.Task, resp.Status, elapsed.Seconds())

	fields := []zap.Field{
		zap.String("provider", req.Provider),
		zap.String("endpoint", req.Task),
		zap.Int("status", resp.Status),
		zap.Int64("latency_ms", elapsed.Milliseconds()),
	}
	switch {
	case resp.Err != nil:
		c.logger.Warn("provider transport failure", append(fields, zap.String("kind", "error"), zap.Error(resp.Err))...)
	case !resp.OK():
		c.logger.Warn("provider returned error status", append(fields, zap.String("kind", "error"), zap.ByteString("body", truncateBytes(resp.Body, 300)))...)
	default:
		c.logger.Info("provider response", append(fields, zap.String("kind", "response"))...)
	}
	return resp
}

func (c *Client) roundTrip(ctx context.Context, method string, req Request, body io.Reader) Response {
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return Response{Err: fmt.Errorf("build request: %w", err)}
	}
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return Response{Err: fmt.Errorf("read body: %w", err)}
	}
	return Response{Status: httpResp.StatusCode, Body: data}
}

// PostJSON marshals payload and posts it.
func (c *Client) PostJSON(ctx context.Context, req Request, payload any) Response {
	data, err := json.Marshal(payload)
	if err != nil {
		return Response{Err: fmt.Errorf("encode payload: %w", err)}
	}
	req.Method = http.MethodPost
	req.ContentType = "application/json"
	req.Body = data
	return c.Do(ctx, req)
}

func truncateBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
