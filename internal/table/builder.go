package table

import (
	"fmt"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/text/unicode/norm"

	"github.com/pfrederiksen/tablescrape/internal/grid"
)

// TextMode controls how a cell's markup becomes text
type TextMode string

const (
	// TextPlain concatenates the cell's descendant text nodes
	TextPlain TextMode = "text"
	// TextMarkdown converts the cell's inner HTML to Markdown, keeping links and emphasis
	TextMarkdown TextMode = "markdown"
)

// ParseTextMode validates a text mode name. Empty means TextPlain.
func ParseTextMode(s string) (TextMode, error) {
	switch TextMode(strings.ToLower(strings.TrimSpace(s))) {
	case TextPlain, "":
		return TextPlain, nil
	case TextMarkdown:
		return TextMarkdown, nil
	default:
		return "", fmt.Errorf("invalid text mode: %s (must be 'text' or 'markdown')", s)
	}
}

// Options configures Build
type Options struct {
	// CellTags are the tags treated as data cells within each row
	CellTags []string
	// Header selects the header cells whose text becomes the column labels
	Header Filter
	// Cleaner is applied to header and data cell text
	Cleaner *Cleaner
	// Trim removes surrounding whitespace after cleanup
	Trim bool
	// Normalize applies Unicode NFKC normalization before cleanup
	Normalize bool
	TextMode  TextMode
}

// DefaultOptions reads <td> data cells, labels columns from every <th>, and
// strips footnote markers and newlines.
func DefaultOptions() Options {
	return Options{
		CellTags: []string{"td"},
		Header:   HeaderFilter(),
		Cleaner:  DefaultCleaner(),
		TextMode: TextPlain,
	}
}

func (o Options) withDefaults() Options {
	if len(o.CellTags) == 0 {
		o.CellTags = []string{"td"}
	}
	if o.Header.Tag == "" {
		o.Header.Tag = "th"
	}
	if o.Cleaner == nil {
		o.Cleaner = DefaultCleaner()
	}
	if o.TextMode == "" {
		o.TextMode = TextPlain
	}
	return o
}

// Build converts the first element of sel, a <table>, into a grid.
//
// Columns are the cleaned texts of the header cells in document order. Every
// <tr> after the first becomes one row. Cells are placed left to right; a cell
// skips columns already claimed in its row by a rowspan from above, and its text
// is copied into every position of its rowspan x colspan block. A block that
// would run past the last column fails with grid.ErrShapeMismatch. A rowspan
// running past the last row is cut at the table end, and rowspan="0" spans to
// the end. A table without header cells yields a zero-column grid.
func Build(sel *goquery.Selection, opts Options) (*grid.Grid, error) {
	opts = opts.withDefaults()
	sel = sel.First()

	cellMatcher, err := compileCellTags(opts.CellTags)
	if err != nil {
		return nil, err
	}

	headerCells, err := opts.Header.Find(sel)
	if err != nil {
		return nil, err
	}
	headers := make([]string, 0, headerCells.Length())
	for i := range headerCells.Nodes {
		text, err := opts.cellText(headerCells.Eq(i))
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", i, err)
		}
		headers = append(headers, text)
	}

	rows := sel.Find("tr")
	if rows.Length() > 0 {
		rows = rows.Slice(1, goquery.ToEnd)
	}

	g := grid.New(headers, rows.Length())
	if g.NumCols() == 0 {
		return g, nil
	}

	for i := range rows.Nodes {
		cells := rows.Eq(i).FindMatcher(cellMatcher)
		if err := placeRow(g, i, cells, opts); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}

	return g, nil
}

// placeRow writes the cells of data row i into g
func placeRow(g *grid.Grid, i int, cells *goquery.Selection, opts Options) error {
	ncols := g.NumCols()
	col := 0

	for j := range cells.Nodes {
		cell := cells.Eq(j)

		rowSpan, err := spanAttr(cell, "rowspan", maxRowSpan)
		if err != nil {
			return err
		}
		colSpan, err := spanAttr(cell, "colspan", maxColSpan)
		if err != nil {
			return err
		}
		if colSpan == 0 {
			colSpan = 1
		}
		if rowSpan == 0 || rowSpan > g.NumRows()-i {
			rowSpan = g.NumRows() - i
		}

		// A rowspan from an earlier row may already hold this column.
		for col < ncols && claimed(g.Rows[i], col, colSpan) {
			col++
		}
		if colSpan > ncols-col {
			return fmt.Errorf("%w: cell %d spans columns %d-%d but the header defines %d",
				grid.ErrShapeMismatch, j, col, col+colSpan-1, ncols)
		}

		text, err := opts.cellText(cell)
		if err != nil {
			return fmt.Errorf("cell %d: %w", j, err)
		}
		value := grid.Str(text)

		for r := i; r < i+rowSpan; r++ {
			for c := col; c < col+colSpan; c++ {
				g.Rows[r][c] = value
			}
		}
		col += colSpan
	}

	return nil
}

// claimed reports whether any of row[col:col+span] is already filled
func claimed(row []grid.Cell, col, span int) bool {
	for c := col; c < col+span && c < len(row); c++ {
		if row[c].Valid {
			return true
		}
	}
	return false
}

// Browsers clamp spans to these limits.
const (
	maxColSpan = 1000
	maxRowSpan = 65534
)

// spanAttr reads a rowspan/colspan attribute. Absent means 1, negatives are rejected
// and values above most are clamped.
func spanAttr(cell *goquery.Selection, name string, most int) (int, error) {
	raw, ok := cell.Attr(name)
	if !ok {
		return 1, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrParse, name, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s=%d is negative", ErrParse, name, n)
	}
	if n > most {
		n = most
	}
	return n, nil
}

// compileCellTags builds one matcher for all cell tags so cells come back in document order
func compileCellTags(tags []string) (cascadia.Selector, error) {
	group := make(cascadia.SelectorGroup, 0, len(tags))
	for _, tag := range tags {
		sel, err := cascadia.ParseGroup(tag)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid cell tag %q: %v", ErrParse, tag, err)
		}
		group = append(group, sel...)
	}
	return cascadia.Selector(group.Match), nil
}

// cellText extracts and cleans the text of one cell
func (o Options) cellText(cell *goquery.Selection) (string, error) {
	var text string
	switch o.TextMode {
	case TextMarkdown:
		inner, err := cell.Html()
		if err != nil {
			return "", fmt.Errorf("rendering cell: %w", err)
		}
		text, err = htmltomarkdown.ConvertString(inner)
		if err != nil {
			return "", fmt.Errorf("converting cell to markdown: %w", err)
		}
	default:
		text = cell.Text()
	}

	if o.Normalize {
		text = norm.NFKC.String(text)
	}
	text = o.Cleaner.Clean(text)
	if o.Trim {
		text = strings.TrimSpace(text)
	}
	return text, nil
}
