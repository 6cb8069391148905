package scraper

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// DefaultParser is the parsing strategy used when none is chosen
const DefaultParser = "html"

// ErrUnsupportedParser is returned for parser names not in the registry
var ErrUnsupportedParser = errors.New("unsupported parser")

// Parser turns a document into a queryable tree. contentType is the response
// Content-Type header and may be empty.
type Parser func(r io.Reader, contentType string) (*goquery.Document, error)

var parsers = map[string]Parser{
	"html":     parseHTML,
	"utf8":     parseUTF8,
	"fragment": parseFragment,
}

// LookupParser returns the parser registered under name
func LookupParser(name string) (Parser, error) {
	if name == "" {
		name = DefaultParser
	}
	p, ok := parsers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedParser, name, strings.Join(Parsers(), ", "))
	}
	return p, nil
}

// Parsers lists the registered parser names
func Parsers() []string {
	names := make([]string, 0, len(parsers))
	for name := range parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// parseHTML decodes the document using the declared or sniffed charset,
// then parses it as a full HTML5 document.
func parseHTML(r io.Reader, contentType string) (*goquery.Document, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}
	return goquery.NewDocumentFromReader(utf8Reader)
}

// parseUTF8 parses the bytes as UTF-8 without charset detection
func parseUTF8(r io.Reader, _ string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// parseFragment parses a snippet in <body> context, without synthesizing
// a document around it first.
func parseFragment(r io.Reader, contentType string) (*goquery.Document, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(utf8Reader, body)
	if err != nil {
		return nil, err
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(root), nil
}
