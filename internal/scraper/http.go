package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError reports a non-success HTTP response. It unwraps to ErrNetwork.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d (%s)", e.StatusCode, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrNetwork
}

// HTTPFetcher fetches pages with a plain HTTP GET
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewHTTPFetcher creates an HTTPFetcher. A zero timeout means no timeout.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = UserAgent
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		maxBytes:  MaxBodySize,
	}
}

// Fetch issues a GET for url and returns the body of a 2xx response
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching page: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrNetwork, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrNetwork, f.maxBytes)
	}

	return &Page{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
