package table

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// AttrPredicate matches one element attribute.
//
// With Exists set only the attribute's presence is checked. Otherwise the
// attribute must equal Value; for "class" it is enough that one of the
// element's space-separated classes equals Value.
type AttrPredicate struct {
	Key    string
	Value  string
	Exists bool
}

// Filter selects elements by tag name and attribute predicates.
// CSS, when set, is an extra selector every match must also satisfy.
type Filter struct {
	Tag   string
	Attrs []AttrPredicate
	CSS   string
}

// DefaultTableFilter matches <table class="wikitable">
func DefaultTableFilter() Filter {
	return Filter{
		Tag:   "table",
		Attrs: []AttrPredicate{{Key: "class", Value: "wikitable"}},
	}
}

// HeaderFilter matches every <th>
func HeaderFilter() Filter {
	return Filter{Tag: "th"}
}

// ParseAttr parses "key=value" into a predicate. A bare "key" matches on presence.
func ParseAttr(s string) (AttrPredicate, error) {
	key, value, found := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return AttrPredicate{}, fmt.Errorf("%w: empty attribute name in %q", ErrParse, s)
	}
	if !found {
		return AttrPredicate{Key: key, Exists: true}, nil
	}
	return AttrPredicate{Key: key, Value: value}, nil
}

// Matches reports whether the first element of sel satisfies every predicate.
// Tag and CSS are not checked here; Find applies them.
func (f Filter) Matches(sel *goquery.Selection) bool {
	for _, p := range f.Attrs {
		val, ok := sel.Attr(p.Key)
		if !ok {
			return false
		}
		if p.Exists {
			continue
		}
		if val == p.Value {
			continue
		}
		if strings.EqualFold(p.Key, "class") && sel.HasClass(p.Value) {
			continue
		}
		return false
	}
	return true
}

// Find returns the descendants of sel matching the filter, in document order.
func (f Filter) Find(sel *goquery.Selection) (*goquery.Selection, error) {
	tag := f.Tag
	if tag == "" {
		tag = "*"
	}
	found := sel.Find(tag)

	if f.CSS != "" {
		m, err := cascadia.Compile(f.CSS)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid selector %q: %v", ErrParse, f.CSS, err)
		}
		found = found.FilterMatcher(m)
	}

	if len(f.Attrs) == 0 {
		return found, nil
	}
	return found.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return f.Matches(s)
	}), nil
}

// String renders the filter as a CSS-like description for logs
func (f Filter) String() string {
	var b strings.Builder
	if f.Tag == "" {
		b.WriteString("*")
	} else {
		b.WriteString(f.Tag)
	}
	for _, p := range f.Attrs {
		if p.Exists {
			fmt.Fprintf(&b, "[%s]", p.Key)
		} else {
			fmt.Fprintf(&b, "[%s=%q]", p.Key, p.Value)
		}
	}
	if f.CSS != "" {
		fmt.Fprintf(&b, ":is(%s)", f.CSS)
	}
	return b.String()
}
