package table

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/tablescrape/internal/grid"
)

// Table is one <table> element located in a document
type Table struct {
	// Index is the position among the tables matched by the locating filter
	Index     int
	Selection *goquery.Selection
}

// Caption returns the trimmed text of the table's own <caption>, if any
func (t *Table) Caption() string {
	caption := t.Selection.ChildrenFiltered("caption").First()
	return strings.Join(strings.Fields(caption.Text()), " ")
}

// Classes returns the table's class attribute split on whitespace
func (t *Table) Classes() []string {
	class, _ := t.Selection.Attr("class")
	return strings.Fields(class)
}

// RowCount returns the number of data rows Build will produce
func (t *Table) RowCount() int {
	n := t.Selection.Find("tr").Length() - 1
	if n < 0 {
		return 0
	}
	return n
}

// Build converts the table into a grid
func (t *Table) Build(opts Options) (*grid.Grid, error) {
	return Build(t.Selection, opts)
}
