package table

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrParse is returned for span attributes, patterns and selectors that cannot be parsed
var ErrParse = errors.New("parse error")

// DefaultPattern strips a trailing bracketed footnote marker such as "[1]" or
// "[note 2]", along with any newline. A single newline may follow the marker,
// which is how cell text usually ends in wiki markup.
const DefaultPattern = `\[.*\]\n?$|\n`

// Cleaner applies a regular-expression substitution to cell text
type Cleaner struct {
	re          *regexp.Regexp
	replacement string
}

var defaultCleaner = &Cleaner{re: regexp.MustCompile(DefaultPattern)}

// DefaultCleaner removes footnote markers and newlines
func DefaultCleaner() *Cleaner {
	return defaultCleaner
}

// NewCleaner compiles pattern. Matches are replaced with replacement, which may
// reference submatches as $1 or ${name}.
func NewCleaner(pattern, replacement string) (*Cleaner, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: cleanup pattern: %v", ErrParse, err)
	}
	return &Cleaner{re: re, replacement: replacement}, nil
}

// Clean returns s with every match of the pattern replaced
func (c *Cleaner) Clean(s string) string {
	return c.re.ReplaceAllString(s, c.replacement)
}

// Pattern returns the source of the compiled pattern
func (c *Cleaner) Pattern() string {
	return c.re.String()
}
