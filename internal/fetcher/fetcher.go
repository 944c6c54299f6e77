// Package fetcher retrieves the analytics payload from the reviews API.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"review-insights-go/internal/analytics"
)

const DataPath = "/api/data"

var (
	ErrFetchFailed      = errors.New("fetch failed")
	ErrAPI              = errors.New("api error")
	ErrMalformedPayload = errors.New("malformed payload")
)

// APIError carries the message of a payload whose top-level "error" field
// was set.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return "api error: " + e.Message }

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// Query narrows the data request. Zero fields are left off the URL.
type Query struct {
	CompanyID string
	From      time.Time
	To        time.Time
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.CompanyID != "" {
		v.Set("companyId", q.CompanyID)
	}
	if !q.From.IsZero() {
		v.Set("from", q.From.Format(time.DateOnly))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.Format(time.DateOnly))
	}
	return v
}

type Client struct {
	BaseURL    string
	httpClient *http.Client
	maxElapsed time.Duration
	query      Query
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxElapsed bounds the total time spent retrying one fetch.
func WithMaxElapsed(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

func WithQuery(q Query) Option {
	return func(c *Client) { c.query = q }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 12 * time.Second},
		maxElapsed: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL is the endpoint Fetch requests.
func (c *Client) URL() string {
	u := c.BaseURL + DataPath
	if v := c.query.values(); len(v) > 0 {
		u += "?" + v.Encode()
	}
	return u
}

// Fetch retrieves and decodes the payload. Transport failures and 5xx
// responses are retried until the backoff budget runs out, unless the body
// carries an "error" field, which is returned at once as *APIError.
func (c *Client) Fetch(ctx context.Context) (analytics.Payload, error) {
	var payload analytics.Payload
	err := c.doJSON(ctx, func(body []byte) error {
		p, err := analytics.Decode(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if err := apiError(p); err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) doJSON(ctx context.Context, decode func([]byte) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	target := c.URL()

	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrFetchFailed, err)
			return backoff.Permanent(lastErr)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrFetchFailed, err)
			return lastErr
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// a body carrying an error is final at any status
			if p, err := analytics.Decode(body); err == nil {
				if err := apiError(p); err != nil {
					lastErr = err
					return backoff.Permanent(err)
				}
			}
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: server error %d: %s", ErrFetchFailed, resp.StatusCode, snippet(body))
			return lastErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("%w: status %d: %s", ErrFetchFailed, resp.StatusCode, snippet(body))
			return backoff.Permanent(lastErr)
		}
		if err := decode(body); err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr == nil {
			return fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
		return lastErr
	}
	return nil
}

// apiError reports a truthy top-level "error" field. Empty strings, false
// and zero do not count.
func apiError(p analytics.Payload) error {
	msg := analytics.Extract(p, "error", nil)
	if msg == nil {
		return nil
	}
	return &APIError{Message: fmt.Sprint(msg)}
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
