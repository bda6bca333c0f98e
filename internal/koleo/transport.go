package koleo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/koleo-cli/koleo/internal/logging"
)

// Transport defaults.
const (
	DefaultRetries = 4
	DefaultBackoff = 8 * time.Second
	DefaultTimeout = 30 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Request is a single HTTP exchange to perform.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a successful (2xx) HTTP response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	cookies []*http.Cookie
}

// Cookie returns the value of the named Set-Cookie on the response.
func (r *Response) Cookie(name string) (string, bool) {
	for _, c := range r.cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// HTTPClient performs requests, retrying connection-level failures with a
// fixed delay. Non-success statuses are never retried.
type HTTPClient struct {
	// Retries is the number of extra attempts after the first one.
	Retries int
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
	// Timeout bounds a single attempt, including reading the body.
	Timeout time.Duration
	// Sleep waits between attempts; tests replace it.
	Sleep SleepFunc

	once   sync.Once
	client *http.Client
}

// NewHTTPClient returns a client with the default retry policy.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		Retries: DefaultRetries,
		Backoff: DefaultBackoff,
		Timeout: DefaultTimeout,
	}
}

// WithHTTPClient makes c send requests through hc instead of a private
// transport. Must be called before the first request.
func (c *HTTPClient) WithHTTPClient(hc *http.Client) *HTTPClient {
	c.once.Do(func() { c.client = hc })
	return c
}

func (c *HTTPClient) httpClient() *http.Client {
	c.once.Do(func() {
		c.client = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   c.Timeout,
		}
	})
	return c.client
}

// Close releases idle connections held by the underlying transport.
func (c *HTTPClient) Close() {
	if c.client != nil {
		c.client.CloseIdleConnections()
	}
}

// Do performs req. Transient failures are retried up to Retries times with
// Backoff between attempts; after that a *TransportError is returned. A
// non-2xx response yields an *APIError.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	log := logging.FromContext(ctx)
	sleep := c.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.doOnce(ctx, req, attempt)
		if err == nil {
			return resp, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		if attempt > c.Retries {
			return nil, &TransportError{Method: req.Method, URL: req.URL, Attempts: attempt, Err: err}
		}

		log.Debug().
			Str("component", "http").
			Err(err).
			Str("url", req.URL).
			Int("attempt", attempt).
			Int("max_attempts", c.Retries+1).
			Dur("backoff", c.Backoff).
			Msg("retrying request after connection failure")

		if sleepErr := sleep(ctx, c.Backoff); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

func (c *HTTPClient) doOnce(ctx context.Context, req *Request, attempt int) (*Response, error) {
	log := logging.FromContext(ctx)

	target := req.URL
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("component", "http").
		Str("method", req.Method).
		Str("url", target).
		Int("attempt", attempt).
		Int("status", httpResp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		ev := log.Debug().Str("component", "http").Interface("headers", httpResp.Header)
		if utf8.Valid(data) {
			ev = ev.Str("body", string(data))
		} else {
			ev = ev.Bool("binary_body", true)
		}
		ev.Msg("non-success response")
		return nil, newAPIError(req, httpResp.StatusCode, httpResp.Header, data)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		cookies:    httpResp.Cookies(),
	}, nil
}

// IsTransient reports whether err is a connection-level failure worth
// retrying: refused or reset connections, DNS failures, socket errors and
// connections dropped mid-response. Cancellation and API errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
