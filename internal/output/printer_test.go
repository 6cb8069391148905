package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/tablescrape/internal/grid"
)

func capitals() *grid.Grid {
	return &grid.Grid{
		Columns: []string{"Country", "Capital"},
		Rows: [][]grid.Cell{
			{grid.Str("France"), grid.Str("Paris")},
			{grid.Str("Germany"), grid.Missing},
		},
	}
}

func render(t *testing.T, format Format, query string, g *grid.Grid) string {
	t.Helper()
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, format, query)
	require.NoError(t, err)
	require.NoError(t, p.PrintGrid(g))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"TABLE", FormatTable, false},
		{" json ", FormatJSON, false},
		{"ndjson", FormatNDJSON, false},
		{"yaml", FormatYAML, false},
		{"csv", FormatCSV, false},
		{"markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultFormat(t *testing.T) {
	if got := DefaultFormat(true); got != FormatTable {
		t.Errorf("DefaultFormat(true) = %q, want table", got)
	}
	if got := DefaultFormat(false); got != FormatJSON {
		t.Errorf("DefaultFormat(false) = %q, want json", got)
	}
}

func TestPrintGrid_JSON(t *testing.T) {
	out := render(t, FormatJSON, "", capitals())

	var decoded struct {
		Columns []string    `json:"columns"`
		Rows    [][]*string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, []string{"Country", "Capital"}, decoded.Columns)
	require.Len(t, decoded.Rows, 2)
	if decoded.Rows[1][1] != nil {
		t.Errorf("missing cell encoded as %q, want null", *decoded.Rows[1][1])
	}
	if !strings.Contains(out, "null") {
		t.Errorf("output should contain null:\n%s", out)
	}
}

func TestPrintGrid_NDJSON(t *testing.T) {
	out := render(t, FormatNDJSON, "", capitals())

	want := `{"Capital":"Paris","Country":"France"}
{"Capital":null,"Country":"Germany"}
`
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("ndjson mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintGrid_YAML(t *testing.T) {
	out := render(t, FormatYAML, "", capitals())

	var decoded grid.Grid
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	if diff := cmp.Diff(capitals(), &decoded); diff != "" {
		t.Errorf("yaml round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintGrid_CSV(t *testing.T) {
	g := &grid.Grid{
		Columns: []string{"Name", "Note"},
		Rows: [][]grid.Cell{
			{grid.Str("a, b"), grid.Str(`say "hi"`)},
			{grid.Str("c"), grid.Missing},
		},
	}
	out := render(t, FormatCSV, "", g)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)

	want := [][]string{
		{"Name", "Note"},
		{"a, b", `say "hi"`},
		{"c", ""},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintGrid_Table(t *testing.T) {
	out := render(t, FormatTable, "", capitals())

	want := "Country  Capital\n" +
		"France   Paris\n" +
		"Germany  \n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintGrid_TableFlattensMultilineCells(t *testing.T) {
	g := &grid.Grid{
		Columns: []string{"A", "B"},
		Rows:    [][]grid.Cell{{grid.Str("line one\nline two"), grid.Str("x")}},
	}
	out := render(t, FormatTable, "", g)

	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Errorf("table has %d lines, want 2:\n%s", lines, out)
	}
	if !strings.Contains(out, "line one line two") {
		t.Errorf("multiline cell not flattened:\n%s", out)
	}
}

func TestPrintGrid_Text(t *testing.T) {
	out := render(t, FormatText, "", capitals())

	want := "Country: France\nCapital: Paris\n\nCountry: Germany\nCapital: \n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintGrid_Markdown(t *testing.T) {
	g := &grid.Grid{
		Columns: []string{"Name", "Symbol"},
		Rows: [][]grid.Cell{
			{grid.Str("pipe"), grid.Str("a|b")},
			{grid.Str("two\nlines"), grid.Missing},
		},
	}
	out := render(t, FormatMarkdown, "", g)

	want := "| Name | Symbol |\n" +
		"| --- | --- |\n" +
		"| pipe | a\\|b |\n" +
		"| two<br>lines |  |\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("markdown mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintGrid_NoColumns(t *testing.T) {
	g := grid.New(nil, 2)
	for _, format := range []Format{FormatTable, FormatCSV, FormatMarkdown} {
		t.Run(string(format), func(t *testing.T) {
			if out := render(t, format, "", g); out != "" {
				t.Errorf("output = %q, want empty", out)
			}
		})
	}
}

func TestPrintGrid_Query(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		query  string
		want   string
	}{
		{
			name:   "select rows",
			format: FormatJSON,
			query:  `.[] | select(.Capital == null) | .Country`,
			want:   "\"Germany\"\n",
		},
		{
			name:   "project columns",
			format: FormatNDJSON,
			query:  `.[] | {c: .Capital}`,
			want:   "{\"c\":\"Paris\"}\n{\"c\":null}\n",
		},
		{
			name:   "count",
			format: FormatJSON,
			query:  `length`,
			want:   "2\n",
		},
		{
			name:   "yaml list",
			format: FormatYAML,
			query:  `.[].Country`,
			want:   "- France\n- Germany\n",
		},
		{
			name:   "no results",
			format: FormatNDJSON,
			query:  `.[] | select(.Country == "Spain")`,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := render(t, tt.format, tt.query, capitals())
			if diff := cmp.Diff(tt.want, out); diff != "" {
				t.Errorf("query output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewPrinter_QueryErrors(t *testing.T) {
	var buf bytes.Buffer

	_, err := NewPrinter(&buf, FormatJSON, ".[")
	require.Error(t, err)

	_, err = NewPrinter(&buf, FormatJSON, "$undefined")
	require.Error(t, err)

	_, err = NewPrinter(&buf, FormatTable, ".[]")
	require.Error(t, err)
}

func TestPrintGrid_QueryRuntimeError(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatJSON, `.[] | .Country + 1`)
	require.NoError(t, err)
	require.Error(t, p.PrintGrid(capitals()))
}

type item struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
}

func TestPrintList(t *testing.T) {
	items := []item{{0, "first"}, {1, "second"}}
	listing := Table{
		Headers: []string{"INDEX", "NAME"},
		Rows:    [][]string{{"0", "first"}, {"1", "second"}},
	}

	tests := []struct {
		format Format
		query  string
		want   string
	}{
		{FormatTable, "", "INDEX  NAME\n0      first\n1      second\n"},
		{FormatNDJSON, "", "{\"index\":0,\"name\":\"first\"}\n{\"index\":1,\"name\":\"second\"}\n"},
		{FormatJSON, ".[1].name", "\"second\"\n"},
		{FormatCSV, "", "INDEX,NAME\n0,first\n1,second\n"},
		{FormatYAML, "", "- index: 0\n  name: first\n- index: 1\n  name: second\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			p, err := NewPrinter(&buf, tt.format, tt.query)
			require.NoError(t, err)
			require.NoError(t, p.PrintList(listing, items))
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("PrintList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsStructured(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatNDJSON, FormatYAML} {
		if !IsStructured(f) {
			t.Errorf("IsStructured(%q) = false", f)
		}
	}
	for _, f := range []Format{FormatText, FormatTable, FormatCSV, FormatMarkdown} {
		if IsStructured(f) {
			t.Errorf("IsStructured(%q) = true", f)
		}
	}
}
