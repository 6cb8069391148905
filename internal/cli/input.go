package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/tablescrape/internal/config"
	"github.com/pfrederiksen/tablescrape/internal/logger"
	"github.com/pfrederiksen/tablescrape/internal/scraper"
	"github.com/pfrederiksen/tablescrape/internal/table"
)

// sourceFlags select where tables come from and which ones match
type sourceFlags struct {
	class    string
	attrs    []string
	selector string
	parser   string
	fetcher  string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.class, "class", "", `Table class to match; "" matches any table (default from config: wikitable)`)
	flags.StringArrayVar(&f.attrs, "attr", nil, "Extra attribute predicate key=value, or key for presence (repeatable)")
	flags.StringVar(&f.selector, "selector", "", "CSS selector every matched table must also satisfy")
	flags.StringVar(&f.parser, "parser", "", "HTML parser: "+strings.Join(scraper.Parsers(), ", ")+" (default from config: html)")
	flags.StringVar(&f.fetcher, "fetcher", "", "Page fetcher: http or browser (default from config: http)")
}

// filter builds the table filter, taking the class from config unless --class was given
func (f *sourceFlags) filter(cmd *cobra.Command, cfg *config.Config) (table.Filter, error) {
	class := cfg.Class
	if cmd.Flags().Changed("class") {
		class = f.class
	}

	filter := table.Filter{Tag: "table", CSS: f.selector}
	if class != "" {
		filter.Attrs = append(filter.Attrs, table.AttrPredicate{Key: "class", Value: class})
	}
	for _, raw := range f.attrs {
		p, err := table.ParseAttr(raw)
		if err != nil {
			return table.Filter{}, err
		}
		filter.Attrs = append(filter.Attrs, p)
	}
	return filter, nil
}

// scraper builds a Scraper from config plus any --parser/--fetcher override
func (f *sourceFlags) scraper(cmd *cobra.Command, cfg *config.Config) (*scraper.Scraper, error) {
	parser := cfg.Parser
	if cmd.Flags().Changed("parser") {
		parser = f.parser
	}
	if _, err := scraper.LookupParser(parser); err != nil {
		return nil, err
	}

	fetcherName := cfg.Fetcher
	if cmd.Flags().Changed("fetcher") {
		fetcherName = f.fetcher
	}

	var fetcher scraper.Fetcher
	switch fetcherName {
	case config.FetcherHTTP:
		fetcher = scraper.NewHTTPFetcher(cfg.Timeout, cfg.UserAgent)
	case config.FetcherBrowser:
		fetcher = scraper.NewBrowserFetcher(cfg.BrowserBin, cfg.Timeout)
	default:
		return nil, fmt.Errorf("invalid fetcher %q (valid: %s, %s)", fetcherName, config.FetcherHTTP, config.FetcherBrowser)
	}

	return scraper.New(scraper.WithFetcher(fetcher), scraper.WithParser(parser)), nil
}

// source is a located set of tables and where they came from
type source struct {
	// Location is the final URL for web pages, otherwise the path as given
	Location string
	Tables   []*table.Table
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// locate loads input (a URL, a file path, or "-" for stdin) and finds its tables
func (a *app) locate(ctx context.Context, cmd *cobra.Command, flags *sourceFlags, input string) (*source, error) {
	filter, err := flags.filter(cmd, a.cfg)
	if err != nil {
		return nil, err
	}
	s, err := flags.scraper(cmd, a.cfg)
	if err != nil {
		return nil, err
	}

	var (
		location    = input
		body        io.Reader
		contentType string
	)

	switch {
	case isURL(input):
		a.log.Debug("Fetching page", logger.Fields{"url": input})
		var page *scraper.Page
		err := a.metrics.Time("fetch", func() error {
			var fetchErr error
			page, fetchErr = s.Fetch(ctx, input)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}
		a.metrics.SetGauge("page.bytes", float64(len(page.Body)))
		location = page.URL
		body = bytes.NewReader(page.Body)
		contentType = page.ContentType
	case input == "-":
		body = cmd.InOrStdin()
	default:
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		body = f
	}

	tables, err := s.ParseTables(body, contentType, filter)
	if err != nil {
		return nil, err
	}

	a.metrics.SetGauge("tables.found", float64(len(tables)))
	a.log.Debug("Located tables", logger.Fields{
		"source": location,
		"filter": filter.String(),
		"count":  len(tables),
	})

	return &source{Location: location, Tables: tables}, nil
}

// buildFlags control how a table becomes a grid
type buildFlags struct {
	cells       []string
	headerAttrs []string
	pattern     string
	replace     string
	trim        bool
	normalize   bool
	textMode    string
}

func (b *buildFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVar(&b.cells, "cells", []string{"td"}, "Tags treated as data cells")
	flags.StringArrayVar(&b.headerAttrs, "header-attr", nil, "Attribute predicate header <th> cells must match, key=value or key (repeatable)")
	flags.StringVar(&b.pattern, "pattern", table.DefaultPattern, "Regular expression removed from (or replaced in) cell text")
	flags.StringVar(&b.replace, "replace", "", "Replacement for pattern matches; may use $1 or ${name}")
	flags.BoolVar(&b.trim, "trim", false, "Trim surrounding whitespace from cell text")
	flags.BoolVar(&b.normalize, "normalize", false, "Apply Unicode NFKC normalization to cell text")
	flags.StringVar(&b.textMode, "text-mode", string(table.TextPlain), "Cell text extraction: text or markdown")
}

func (b *buildFlags) options() (table.Options, error) {
	opts := table.DefaultOptions()
	opts.CellTags = b.cells
	opts.Trim = b.trim
	opts.Normalize = b.normalize

	header, err := headerFilter(b.headerAttrs)
	if err != nil {
		return table.Options{}, err
	}
	opts.Header = header

	cleaner, err := table.NewCleaner(b.pattern, b.replace)
	if err != nil {
		return table.Options{}, err
	}
	opts.Cleaner = cleaner

	mode, err := table.ParseTextMode(b.textMode)
	if err != nil {
		return table.Options{}, err
	}
	opts.TextMode = mode

	return opts, nil
}

// headerFilter extends the default header filter with --header-attr predicates
func headerFilter(attrs []string) (table.Filter, error) {
	f := table.HeaderFilter()
	for _, raw := range attrs {
		p, err := table.ParseAttr(raw)
		if err != nil {
			return table.Filter{}, err
		}
		f.Attrs = append(f.Attrs, p)
	}
	return f, nil
}
