// Package source implements the HTTP plumbing shared by every upstream
// client: bounded timeouts, status classification and cursor pagination.
//
// Source clients carry no business logic. Every failure is returned to the
// caller, which records it as an unavailable Result and carries on.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vietddude/reconciler/internal/indexing/metrics"
)

var (
	// ErrRateLimited is returned on HTTP 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnexpectedStatus is returned on any other non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// maxErrorBody bounds how much of an error body is echoed into errors.
const maxErrorBody = 256

// Stats holds request statistics of a client.
type Stats struct {
	Requests     int
	Failures     int
	TotalLatency time.Duration
}

// Client performs JSON GET requests against one upstream.
type Client struct {
	name       string
	httpClient *http.Client

	mu    sync.Mutex
	stats Stats
}

// NewClient creates a client with the given per-request timeout.
func NewClient(name string, timeout time.Duration) *Client {
	return &Client{
		name: name,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// GetJSON fetches rawURL and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("%s request: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.recordFailure()
		return fmt.Errorf("%w (429), retry after: %s", ErrRateLimited, resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.recordFailure()
		return fmt.Errorf("%w: http %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.recordFailure()
		return fmt.Errorf("parse response: %w", err)
	}

	c.recordSuccess(time.Since(start))
	return nil
}

// Stats returns a copy of the request statistics.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Client) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Requests++
	c.stats.TotalLatency += latency
	metrics.SourceRequests.WithLabelValues(c.name).Inc()
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Requests++
	c.stats.Failures++
	metrics.SourceRequests.WithLabelValues(c.name).Inc()
	metrics.SourceFailures.WithLabelValues(c.name).Inc()
}

func truncate(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}

// Page is one page of a cursor-paginated listing.
type Page[T any] struct {
	Items []T
	// Next holds the query parameters of the next page, nil when exhausted.
	Next url.Values
}

type pageEnvelope[T any] struct {
	Items          []T             `json:"items"`
	NextPageParams json.RawMessage `json:"next_page_params"`
}

// FetchPage fetches one page of a listing whose `next_page_params` object is
// reused as the query of the following request.
func FetchPage[T any](ctx context.Context, c *Client, rawURL string) (Page[T], error) {
	var env pageEnvelope[T]
	if err := c.GetJSON(ctx, rawURL, &env); err != nil {
		return Page[T]{}, err
	}
	next, err := cursorParams(env.NextPageParams)
	if err != nil {
		return Page[T]{}, fmt.Errorf("parse cursor: %w", err)
	}
	return Page[T]{Items: env.Items, Next: next}, nil
}

// FetchAllPages follows the cursor from baseURL until it is exhausted or
// maxPages pages have been read. Hitting the bound is not reported: the
// result is then a prefix of the full listing.
func FetchAllPages[T any](ctx context.Context, c *Client, baseURL string, maxPages int) ([]T, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", baseURL, err)
	}
	baseQuery := u.Query()

	var all []T
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		p, err := FetchPage[T](ctx, c, u.String())
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page+1, err)
		}
		all = append(all, p.Items...)
		if p.Next == nil || len(p.Items) == 0 {
			break
		}

		q := make(url.Values, len(baseQuery)+len(p.Next))
		for k, v := range baseQuery {
			q[k] = v
		}
		for k, v := range p.Next {
			q[k] = v
		}
		u.RawQuery = q.Encode()
	}
	return all, nil
}

// cursorParams converts a cursor object into query parameters. A missing,
// null or empty cursor means there is no next page.
func cursorParams(raw json.RawMessage) (url.Values, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, nil
	}

	q := make(url.Values, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			q.Set(k, val)
		case json.Number:
			q.Set(k, val.String())
		case bool:
			q.Set(k, fmt.Sprintf("%t", val))
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			q.Set(k, string(b))
		}
	}
	if len(q) == 0 {
		return nil, nil
	}
	return q, nil
}
