package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher renders pages in headless Chromium, for tables that are
// built by JavaScript after load.
type BrowserFetcher struct {
	bin     string
	timeout time.Duration
}

// NewBrowserFetcher creates a BrowserFetcher. An empty bin lets rod find or
// download a browser. A zero timeout means no timeout.
func NewBrowserFetcher(bin string, timeout time.Duration) *BrowserFetcher {
	return &BrowserFetcher{
		bin:     bin,
		timeout: timeout,
	}
}

// Fetch loads url and returns the rendered DOM serialized as HTML
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	l := launcher.New().Context(ctx).Headless(true)
	if f.bin != "" {
		l = l.Bin(f.bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launching browser: %w", ErrNetwork, err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connecting to browser: %w", ErrNetwork, err)
	}
	defer browser.Close() // nolint:errcheck

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: opening page: %w", ErrNetwork, err)
	}
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("%w: enabling network events: %w", ErrNetwork, err)
	}

	// Redirects do not emit a response event, so the first document
	// response is the final one.
	var status int
	var finalURL, mimeType string
	waitResponse := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return false
		}
		status = e.Response.Status
		finalURL = e.Response.URL
		mimeType = e.Response.MIMEType
		return true
	})

	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("%w: navigating: %w", ErrNetwork, err)
	}
	waitResponse()

	if status < 200 || status >= 300 {
		return nil, &StatusError{URL: url, StatusCode: status}
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: waiting for load: %w", ErrNetwork, err)
	}

	rendered, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("%w: reading DOM: %w", ErrNetwork, err)
	}

	if mimeType == "" {
		mimeType = "text/html"
	}
	return &Page{
		URL: finalURL,
		// The DOM is serialized by the browser as UTF-8 regardless of the source encoding.
		ContentType: mimeType + "; charset=utf-8",
		Body:        []byte(rendered),
	}, nil
}
