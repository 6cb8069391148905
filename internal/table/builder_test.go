package table

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/pfrederiksen/tablescrape/internal/grid"
)

// firstTable parses src and returns its first <table>
func firstTable(t *testing.T, src string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parsing HTML: %v", err)
	}
	sel := doc.Find("table").First()
	if sel.Length() == 0 {
		t.Fatal("no <table> in test document")
	}
	return sel
}

// row builds a grid row; "<nil>" marks a missing cell
func row(values ...string) []grid.Cell {
	cells := make([]grid.Cell, len(values))
	for i, v := range values {
		if v == "<nil>" {
			cells[i] = grid.Missing
			continue
		}
		cells[i] = grid.Str(v)
	}
	return cells
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		opts        func(*Options)
		wantColumns []string
		wantRows    [][]grid.Cell
	}{
		{
			name: "no merged cells",
			html: `<table class="wikitable">
				<tr><th>City</th><th>Country</th></tr>
				<tr><td>Paris</td><td>France</td></tr>
				<tr><td>Rome</td><td>Italy</td></tr>
			</table>`,
			wantColumns: []string{"City", "Country"},
			wantRows: [][]grid.Cell{
				row("Paris", "France"),
				row("Rome", "Italy"),
			},
		},
		{
			name: "colspan fills consecutive columns",
			html: `<table>
				<tr><th>A</th><th>B</th><th>C</th></tr>
				<tr><td colspan="2">X</td><td>Y</td></tr>
			</table>`,
			wantColumns: []string{"A", "B", "C"},
			wantRows:    [][]grid.Cell{row("X", "X", "Y")},
		},
		{
			name: "rowspan fills the next row and is skipped there",
			html: `<table>
				<tr><th>A</th><th>B</th></tr>
				<tr><td rowspan="2">R</td><td>1</td></tr>
				<tr><td>2</td></tr>
			</table>`,
			wantColumns: []string{"A", "B"},
			wantRows: [][]grid.Cell{
				row("R", "1"),
				row("R", "2"),
			},
		},
		{
			name: "rowspan and colspan combined",
			html: `<table>
				<tr><th>Year</th><th>Winner</th><th>Score</th><th>Venue</th></tr>
				<tr><td rowspan="2">2020</td><td>A</td><td>1-0</td><td rowspan="3">Stadium</td></tr>
				<tr><td>B</td><td>2-1</td></tr>
				<tr><td>2021</td><td colspan="2">Cancelled</td></tr>
			</table>`,
			wantColumns: []string{"Year", "Winner", "Score", "Venue"},
			wantRows: [][]grid.Cell{
				row("2020", "A", "1-0", "Stadium"),
				row("2020", "B", "2-1", "Stadium"),
				row("2021", "Cancelled", "Cancelled", "Stadium"),
			},
		},
		{
			name: "rowspan block in the middle of a row",
			html: `<table>
				<tr><th>A</th><th>B</th><th>C</th></tr>
				<tr><td>1</td><td rowspan="2" colspan="2">M</td></tr>
				<tr><td>2</td></tr>
			</table>`,
			wantColumns: []string{"A", "B", "C"},
			wantRows: [][]grid.Cell{
				row("1", "M", "M"),
				row("2", "M", "M"),
			},
		},
		{
			name: "cell skips past a rowspan from above",
			html: `<table>
				<tr><th>A</th><th>B</th><th>C</th></tr>
				<tr><td>1</td><td rowspan="2">M</td><td>3</td></tr>
				<tr><td>4</td><td>6</td></tr>
			</table>`,
			wantColumns: []string{"A", "B", "C"},
			wantRows: [][]grid.Cell{
				row("1", "M", "3"),
				row("4", "M", "6"),
			},
		},
		{
			name: "rowspan past the last row is cut",
			html: `<table>
				<tr><th>A</th><th>B</th></tr>
				<tr><td>1</td><td rowspan="5">tall</td></tr>
				<tr><td>2</td></tr>
			</table>`,
			wantColumns: []string{"A", "B"},
			wantRows: [][]grid.Cell{
				row("1", "tall"),
				row("2", "tall"),
			},
		},
		{
			name: "rowspan at the integer limit is cut to the table",
			html: `<table>
				<tr><th>A</th><th>B</th></tr>
				<tr><td>1</td><td>x</td></tr>
				<tr><td>2</td><td rowspan="9223372036854775807">y</td></tr>
				<tr><td>3</td></tr>
			</table>`,
			wantColumns: []string{"A", "B"},
			wantRows: [][]grid.Cell{
				row("1", "x"),
				row("2", "y"),
				row("3", "y"),
			},
		},
		{
			name: "colspan zero counts as one",
			html: `<table>
				<tr><th>A</th><th>B</th></tr>
				<tr><td colspan="0">1</td><td>2</td></tr>
			</table>`,
			wantColumns: []string{"A", "B"},
			wantRows: [][]grid.Cell{
				row("1", "2"),
			},
		},
		{
			name: "rowspan zero spans to the end",
			html: `<table>
				<tr><th>A</th><th>B</th></tr>
				<tr><td rowspan="0">all</td><td>1</td></tr>
				<tr><td>2</td></tr>
				<tr><td>3</td></tr>
			</table>`,
			wantColumns: []string{"A", "B"},
			wantRows: [][]grid.Cell{
				row("all", "1"),
				row("all", "2"),
				row("all", "3"),
			},
		},
		{
			name: "short rows leave missing cells",
			html: `<table>
				<tr><th>A</th><th>B</th><th>C</th></tr>
				<tr><td>1</td></tr>
				<tr></tr>
				<tr><td></td><td>x</td></tr>
			</table>`,
			wantColumns: []string{"A", "B", "C"},
			wantRows: [][]grid.Cell{
				row("1", "<nil>", "<nil>"),
				row("<nil>", "<nil>", "<nil>"),
				row("", "x", "<nil>"),
			},
		},
		{
			name: "footnote markers and newlines are stripped",
			html: `<table>
				<tr><th>Capital
</th><th>Population[a]</th></tr>
				<tr><td>Paris[1]</td><td>2,102,650<sup>[2]</sup>
</td></tr>
				<tr><td>Ro
me</td><td>2.8M</td></tr>
			</table>`,
			wantColumns: []string{"Capital", "Population"},
			wantRows: [][]grid.Cell{
				row("Paris", "2,102,650"),
				row("Rome", "2.8M"),
			},
		},
		{
			name: "no header cells gives zero columns",
			html: `<table>
				<tr><td>a</td><td>b</td></tr>
				<tr><td>1</td><td>2</td></tr>
				<tr><td>3</td><td>4</td></tr>
			</table>`,
			wantColumns: []string{},
			wantRows:    [][]grid.Cell{{}, {}},
		},
		{
			name: "header filter and row header cells",
			html: `<table>
				<tr><th scope="col">Name</th><th scope="col">Value</th></tr>
				<tr><th scope="row">a</th><td>1</td></tr>
				<tr><th scope="row">b</th><td>2</td></tr>
			</table>`,
			opts: func(o *Options) {
				o.CellTags = []string{"th", "td"}
				o.Header = Filter{Tag: "th", Attrs: []AttrPredicate{{Key: "scope", Value: "col"}}}
			},
			wantColumns: []string{"Name", "Value"},
			wantRows: [][]grid.Cell{
				row("a", "1"),
				row("b", "2"),
			},
		},
		{
			name: "trim and normalize",
			html: `<table>
				<tr><th> Name </th></tr>
				<tr><td>  Gare&nbsp;du&nbsp;Nord  </td></tr>
			</table>`,
			opts: func(o *Options) {
				o.Trim = true
				o.Normalize = true
			},
			wantColumns: []string{"Name"},
			wantRows:    [][]grid.Cell{row("Gare du Nord")},
		},
		{
			name: "custom cleanup pattern",
			html: `<table>
				<tr><th>City (EN)</th></tr>
				<tr><td>Munich (München)</td></tr>
			</table>`,
			opts: func(o *Options) {
				c, err := NewCleaner(`\s*\((.*)\)`, ":$1")
				if err != nil {
					panic(err)
				}
				o.Cleaner = c
			},
			wantColumns: []string{"City:EN"},
			wantRows:    [][]grid.Cell{row("Munich:München")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			g, err := Build(firstTable(t, tt.html), opts)
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.wantColumns, g.Columns); diff != "" {
				t.Errorf("Build() columns mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantRows, g.Rows); diff != "" {
				t.Errorf("Build() rows mismatch (-want +got):\n%s", diff)
			}
			if err := g.Validate(); err != nil {
				t.Errorf("Build() produced an invalid grid: %v", err)
			}
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		opts    func(*Options)
		wantErr error
	}{
		{
			name: "more cells than columns",
			html: `<table>
				<tr><th>A</th><th>B</th></tr>
				<tr><td>1</td><td>2</td><td>3</td></tr>
			</table>`,
			wantErr: grid.ErrShapeMismatch,
		},
		{
			name: "colspan past the last column",
			html: `<table>
				<tr><th>A</th><th>B</th></tr>
				<tr><td>1</td><td colspan="2">2</td></tr>
			</table>`,
			wantErr: grid.ErrShapeMismatch,
		},
		{
			name: "rowspan pushes a later row past the last column",
			html: `<table>
				<tr><th>A</th><th>B</th></tr>
				<tr><td rowspan="2">1</td><td>2</td></tr>
				<tr><td>3</td><td>4</td></tr>
			</table>`,
			wantErr: grid.ErrShapeMismatch,
		},
		{
			name: "non-integer rowspan",
			html: `<table>
				<tr><th>A</th></tr>
				<tr><td rowspan="two">1</td></tr>
			</table>`,
			wantErr: ErrParse,
		},
		{
			name: "non-integer colspan",
			html: `<table>
				<tr><th>A</th></tr>
				<tr><td colspan="1.5">1</td></tr>
			</table>`,
			wantErr: ErrParse,
		},
		{
			name: "colspan at the integer limit",
			html: `<table>
				<tr><th>A</th><th>B</th><th>C</th></tr>
				<tr><td>1</td><td colspan="9223372036854775807">2</td><td>3</td></tr>
			</table>`,
			wantErr: grid.ErrShapeMismatch,
		},
		{
			name: "negative colspan",
			html: `<table>
				<tr><th>A</th></tr>
				<tr><td colspan="-2">1</td></tr>
			</table>`,
			wantErr: ErrParse,
		},
		{
			name: "negative rowspan",
			html: `<table>
				<tr><th>A</th></tr>
				<tr><td rowspan="-1">1</td></tr>
			</table>`,
			wantErr: ErrParse,
		},
		{
			name: "invalid cell tag",
			html: `<table><tr><th>A</th></tr></table>`,
			opts: func(o *Options) {
				o.CellTags = []string{"td["}
			},
			wantErr: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			_, err := Build(firstTable(t, tt.html), opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuild_SpanWhitespaceAccepted(t *testing.T) {
	sel := firstTable(t, `<table>
		<tr><th>A</th><th>B</th></tr>
		<tr><td colspan=" 2 ">x</td></tr>
	</table>`)

	g, err := Build(sel, DefaultOptions())
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if diff := cmp.Diff([][]grid.Cell{row("x", "x")}, g.Rows); diff != "" {
		t.Errorf("Build() rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ZeroValueOptions(t *testing.T) {
	sel := firstTable(t, `<table>
		<tr><th>A[1]</th></tr>
		<tr><td>x</td></tr>
	</table>`)

	g, err := Build(sel, Options{})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"A"}, g.Columns); diff != "" {
		t.Errorf("Build() columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]grid.Cell{row("x")}, g.Rows); diff != "" {
		t.Errorf("Build() rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_MarkdownText(t *testing.T) {
	sel := firstTable(t, `<table>
		<tr><th>City</th></tr>
		<tr><td><a href="/wiki/Paris">Paris</a></td></tr>
	</table>`)

	opts := DefaultOptions()
	opts.TextMode = TextMarkdown
	opts.Trim = true

	g, err := Build(sel, opts)
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if got := g.Rows[0][0].Value; !strings.Contains(got, "[Paris](/wiki/Paris)") {
		t.Errorf("markdown cell = %q, want a link to /wiki/Paris", got)
	}
}

func TestTable_Accessors(t *testing.T) {
	tbl := &Table{Selection: firstTable(t, `<table class="wikitable sortable">
		<caption>
			Largest   cities
		</caption>
		<tr><th>City</th></tr>
		<tr><td>Tokyo</td></tr>
		<tr><td>Delhi</td></tr>
	</table>`)}

	if got := tbl.Caption(); got != "Largest cities" {
		t.Errorf("Caption() = %q, want %q", got, "Largest cities")
	}
	if diff := cmp.Diff([]string{"wikitable", "sortable"}, tbl.Classes()); diff != "" {
		t.Errorf("Classes() mismatch (-want +got):\n%s", diff)
	}
	if got := tbl.RowCount(); got != 2 {
		t.Errorf("RowCount() = %d, want 2", got)
	}

	g, err := tbl.Build(DefaultOptions())
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if g.NumRows() != tbl.RowCount() {
		t.Errorf("Build() rows = %d, RowCount() = %d", g.NumRows(), tbl.RowCount())
	}
}

func TestParseTextMode(t *testing.T) {
	tests := []struct {
		in      string
		want    TextMode
		wantErr bool
	}{
		{"", TextPlain, false},
		{"text", TextPlain, false},
		{"Markdown", TextMarkdown, false},
		{"html", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTextMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTextMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTextMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
