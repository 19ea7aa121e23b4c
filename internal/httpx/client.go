// Package httpx is the shared outbound HTTP client: timeouts, bounded bodies and retries.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultAttempts = 3
	DefaultMaxBody  = 8 << 20
)

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when retried
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Response is a fully read response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Client struct {
	log      zerolog.Logger
	http     *http.Client
	attempts uint
	delay    time.Duration
	maxBody  int64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

func WithMaxBody(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

func NewClient(log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		log:      log.With().Str("module", "httpx").Logger(),
		http:     &http.Client{Timeout: DefaultTimeout},
		attempts: DefaultAttempts,
		delay:    200 * time.Millisecond,
		maxBody:  DefaultMaxBody,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errTooLarge)
}

var errTooLarge = errors.New("response body too large")

// Do sends one request. GET and HEAD are retried on network errors, 429 and 5xx; other
// methods are attempted once.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	attempts := c.attempts
	if method != http.MethodGet && method != http.MethodHead {
		attempts = 1
	}

	return retry.DoWithData(
		func() (*Response, error) {
			return c.do(ctx, method, url, header, body)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug().Err(err).Uint("attempt", n+1).Str("url", url).Msg("retrying request")
		}),
	)
}

func (c *Client) do(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, retry.Unrecoverable(errors.Wrap(err, "could not create request"))
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, errors.Wrap(err, "could not read response body")
	}
	if int64(len(data)) > c.maxBody {
		return nil, errors.Wrapf(errTooLarge, "%s %s", method, url)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(data)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: snippet}
	}

	c.log.Trace().Str("method", method).Str("url", url).Int("status", resp.StatusCode).Int("bytes", len(data)).Msg("request done")

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// GetJSON issues a GET and decodes the body into out
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}

	resp, err := c.Do(ctx, http.MethodGet, url, h, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.Wrapf(err, "could not decode response of %s", url)
	}

	return nil
}
