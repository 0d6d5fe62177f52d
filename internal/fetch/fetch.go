// Package fetch performs outbound HTTP GETs bounded by a timeout. A request
// that runs out of time fails with *TimeoutError so callers can tell it apart
// from other transport failures.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultTimeout         = 8 * time.Second
	DefaultMaxResponseSize = 8 << 20
)

// ErrResponseTooLarge is returned when the body exceeds the client's limit.
var ErrResponseTooLarge = errors.New("response body too large")

// TimeoutError is returned when the upstream did not answer in time.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.URL, e.Timeout)
}

// IsTimeout reports whether err is, or wraps, a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Response is a fully read upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

type Client struct {
	httpClient      *http.Client
	timeout         time.Duration
	maxResponseSize int64
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxResponseSize caps the bytes read from a response body.
func WithMaxResponseSize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseSize = n
		}
	}
}

func New(options ...ClientOption) *Client {
	c := &Client{
		httpClient:      &http.Client{},
		timeout:         DefaultTimeout,
		maxResponseSize: DefaultMaxResponseSize,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Get fetches rawURL. Non-2xx statuses are not errors; inspect Response.Status.
// Errors never include the query string.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(unwrapURLError(err), "[fetch.Get] build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.timedOut(ctx, err) {
			return nil, &TimeoutError{URL: redact(req), Timeout: c.timeout}
		}
		return nil, errors.Wrapf(unwrapURLError(err), "[fetch.Get] GET %s", redact(req))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		if c.timedOut(ctx, err) {
			return nil, &TimeoutError{URL: redact(req), Timeout: c.timeout}
		}
		return nil, errors.Wrapf(unwrapURLError(err), "[fetch.Get] read body of %s", redact(req))
	}
	if int64(len(body)) > c.maxResponseSize {
		return nil, errors.Wrapf(ErrResponseTooLarge, "[fetch.Get] %s exceeded %d bytes", redact(req), c.maxResponseSize)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

func (c *Client) timedOut(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// unwrapURLError strips *url.Error, whose message repeats the full URL.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// redact drops the query string, which carries upstream API keys.
func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
