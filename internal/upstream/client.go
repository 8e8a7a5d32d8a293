// Package upstream is the gateway's HTTP adapter to the OpenAI API. It
// forwards validated requests with the gateway's own credential and hands
// back response bodies as streams, never buffering a 2xx body in full.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// errorBodyLimit bounds how much of a non-2xx upstream body is retained.
const errorBodyLimit = 64 << 10

// ErrTimeout is returned when the bounded upstream timeout elapses.
// Timeouts are not retried here; provider calls are not guaranteed idempotent.
var ErrTimeout = errors.New("upstream timeout")

// Error is a non-2xx upstream response. Status and body are preserved so
// callers can pass them through to their own caller unchanged.
type Error struct {
	StatusCode int
	Body       []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// Response is a streaming upstream response. Body mirrors the upstream bytes
// as they arrive and must be closed by the caller.
type Response struct {
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
}

// Client forwards requests to the upstream provider. It holds no session
// state between calls; each Forward is one physical HTTP request.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an upstream client. apiKey is the gateway's own upstream
// credential, never a caller's token.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward sends payload to the endpoint and returns the upstream response as
// a stream. A non-2xx status is returned as *Error with the original status
// and body; an elapsed timeout as ErrTimeout. The request is tied to ctx, so
// a caller disconnect cancels the upstream connection.
func (c *Client) Forward(ctx context.Context, ep Endpoint, param string, payload io.Reader) (*Response, error) {
	path := ep.Path
	if ep.HasParam {
		path = fmt.Sprintf(ep.Path, url.PathEscape(param))
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("call upstream %s: %w", ep.Name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		resp.Body.Close()
		return nil, &Error{StatusCode: resp.StatusCode, Body: body}
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
