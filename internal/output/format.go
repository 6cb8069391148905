package output

import (
	"fmt"
	"strings"
)

// Format represents the output format type.
type Format string

const (
	// FormatText prints one "column: value" block per row.
	FormatText Format = "text"
	// FormatTable prints an aligned table with a header line.
	FormatTable Format = "table"
	// FormatJSON is pretty-printed JSON of the whole grid.
	FormatJSON Format = "json"
	// FormatNDJSON is one JSON record per row.
	FormatNDJSON Format = "ndjson"
	// FormatYAML is YAML of the whole grid.
	FormatYAML Format = "yaml"
	// FormatCSV is RFC 4180 CSV with a header record.
	FormatCSV Format = "csv"
	// FormatMarkdown is a GitHub-flavored Markdown pipe table.
	FormatMarkdown Format = "markdown"
)

var formats = []Format{FormatText, FormatTable, FormatJSON, FormatNDJSON, FormatYAML, FormatCSV, FormatMarkdown}

// ParseFormat converts a string to a Format type.
// Empty string defaults to FormatText. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	}
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, len(formats))
	for i, known := range formats {
		names[i] = string(known)
	}
	return "", fmt.Errorf("invalid --format %q (expected %s)", s, strings.Join(names, "|"))
}

// DefaultFormat is table for terminals and json otherwise
func DefaultFormat(terminal bool) Format {
	if terminal {
		return FormatTable
	}
	return FormatJSON
}

// IsStructured reports whether the format is machine-readable structured output.
func IsStructured(format Format) bool {
	switch format {
	case FormatJSON, FormatNDJSON, FormatYAML:
		return true
	default:
		return false
	}
}
