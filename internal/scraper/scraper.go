package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/tablescrape/internal/table"
)

const (
	UserAgent   = "tablescrape/1.0 (github.com/pfrederiksen/tablescrape)"
	Timeout     = 30 * time.Second
	MaxBodySize = 32 << 20
)

var (
	// ErrNetwork is returned when a page cannot be fetched or the server
	// answers with a non-success status
	ErrNetwork = errors.New("network error")

	// ErrParse is returned when a document cannot be parsed
	ErrParse = table.ErrParse
)

// Page is a fetched document
type Page struct {
	// URL is the final URL after redirects
	URL         string
	ContentType string
	Body        []byte
}

// Fetcher retrieves the document at a URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Scraper fetches pages and locates tables in them
type Scraper struct {
	fetcher Fetcher
	parser  string
}

// Option configures a Scraper
type Option func(*Scraper)

// WithFetcher replaces the default HTTP fetcher
func WithFetcher(f Fetcher) Option {
	return func(s *Scraper) {
		s.fetcher = f
	}
}

// WithParser selects the parsing strategy by name
func WithParser(name string) Option {
	return func(s *Scraper) {
		s.parser = name
	}
}

// New creates a Scraper using plain HTTP and the "html" parser
func New(opts ...Option) *Scraper {
	s := &Scraper{
		fetcher: NewHTTPFetcher(Timeout, UserAgent),
		parser:  DefaultParser,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch retrieves the page at url
func (s *Scraper) Fetch(ctx context.Context, url string) (*Page, error) {
	return s.fetcher.Fetch(ctx, url)
}

// GetTables fetches url and returns the tables matching filter in document order.
// The filter's tag is always "table".
func (s *Scraper) GetTables(ctx context.Context, url string, filter table.Filter) ([]*table.Table, error) {
	// Unknown parser names fail before any network traffic.
	if _, err := LookupParser(s.parser); err != nil {
		return nil, err
	}

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	return s.ParseTables(bytes.NewReader(page.Body), page.ContentType, filter)
}

// ParseTables parses an already available document and returns the tables
// matching filter in document order. contentType may be empty.
func (s *Scraper) ParseTables(r io.Reader, contentType string, filter table.Filter) ([]*table.Table, error) {
	parse, err := LookupParser(s.parser)
	if err != nil {
		return nil, err
	}

	doc, err := parse(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %w", ErrParse, err)
	}

	filter.Tag = "table"
	found, err := filter.Find(doc.Selection)
	if err != nil {
		return nil, err
	}

	tables := make([]*table.Table, 0, found.Length())
	for i := range found.Nodes {
		tables = append(tables, &table.Table{Index: i, Selection: found.Eq(i)})
	}

	return tables, nil
}
