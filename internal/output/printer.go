package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/tablescrape/internal/grid"
)

// Table is a pre-rendered listing for the textual formats
type Table struct {
	Headers []string
	Rows    [][]string
}

// Printer handles output formatting across different formats.
type Printer struct {
	w      io.Writer
	format Format
	query  *gojq.Code
}

// NewPrinter creates a Printer that writes to w in the given format. A non-empty
// query is compiled as a jq expression and requires a structured format.
func NewPrinter(w io.Writer, format Format, query string) (*Printer, error) {
	p := &Printer{
		w:      w,
		format: format,
	}
	if query == "" {
		return p, nil
	}
	if !IsStructured(format) {
		return nil, fmt.Errorf("--query requires json, ndjson or yaml output, not %s", format)
	}

	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid --query: %w", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("invalid --query: %w", err)
	}
	p.query = code
	return p, nil
}

// Format returns the configured format
func (p *Printer) Format() Format {
	return p.format
}

// PrintGrid writes g in the configured format
func (p *Printer) PrintGrid(g *grid.Grid) error {
	if p.query != nil {
		return p.printQuery(g.Records())
	}

	switch p.format {
	case FormatJSON:
		return p.printJSON(g)
	case FormatNDJSON:
		return p.printNDJSON(g.Records())
	case FormatYAML:
		return p.printYAML(g)
	case FormatTable:
		return p.printTableData(g.Columns, textRows(g))
	case FormatText:
		return p.printTextRecords(g.Columns, textRows(g))
	case FormatCSV:
		return p.printCSV(g.Columns, textRows(g))
	case FormatMarkdown:
		return p.printMarkdown(g.Columns, textRows(g))
	default:
		return fmt.Errorf("unsupported format: %s", p.format)
	}
}

// PrintList writes a listing. Structured formats encode items; the textual
// formats render t.
func (p *Printer) PrintList(t Table, items interface{}) error {
	if p.query != nil {
		generic, err := toGeneric(items)
		if err != nil {
			return err
		}
		return p.printQuery(generic)
	}

	switch p.format {
	case FormatJSON:
		return p.printJSON(items)
	case FormatNDJSON:
		generic, err := toGeneric(items)
		if err != nil {
			return err
		}
		list, ok := generic.([]interface{})
		if !ok {
			list = []interface{}{generic}
		}
		return p.printNDJSON(list)
	case FormatYAML:
		return p.printYAML(items)
	case FormatTable:
		return p.printTableData(t.Headers, t.Rows)
	case FormatText:
		return p.printTextRecords(t.Headers, t.Rows)
	case FormatCSV:
		return p.printCSV(t.Headers, t.Rows)
	case FormatMarkdown:
		return p.printMarkdown(t.Headers, t.Rows)
	default:
		return fmt.Errorf("unsupported format: %s", p.format)
	}
}

// toGeneric converts typed values into the map/slice shapes gojq accepts
func toGeneric(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	return out, nil
}

func (p *Printer) newJSONEncoder() *json.Encoder {
	enc := json.NewEncoder(p.w)
	enc.SetEscapeHTML(false)
	return enc
}

func (p *Printer) printJSON(data interface{}) error {
	enc := p.newJSONEncoder()
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (p *Printer) printNDJSON(records []interface{}) error {
	enc := p.newJSONEncoder()
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printYAML(data interface{}) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(data)
}

// printQuery runs the jq query over input. JSON and NDJSON print one result
// per line; YAML prints the results as one list.
func (p *Printer) printQuery(input interface{}) error {
	var results []interface{}
	iter := p.query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("query error: %w", err)
		}
		results = append(results, v)
	}

	if p.format == FormatYAML {
		if results == nil {
			results = []interface{}{}
		}
		return p.printYAML(results)
	}
	return p.printNDJSON(results)
}

// textRows renders cells as strings, missing cells as ""
func textRows(g *grid.Grid) [][]string {
	rows := make([][]string, len(g.Rows))
	for i, row := range g.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cell.String()
		}
	}
	return rows
}

// flatten keeps tabwriter columns aligned when a cell spans lines
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (p *Printer) printTableData(headers []string, rows [][]string) error {
	if len(headers) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)

	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, flatten(h))
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, flatten(cell))
		}
		fmt.Fprintln(w)
	}

	return w.Flush()
}

func (p *Printer) printTextRecords(headers []string, rows [][]string) error {
	for i, row := range rows {
		if i > 0 {
			if _, err := fmt.Fprintln(p.w); err != nil {
				return err
			}
		}
		for j, cell := range row {
			if _, err := fmt.Fprintf(p.w, "%s: %s\n", headers[j], cell); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Printer) printCSV(headers []string, rows [][]string) error {
	if len(headers) == 0 {
		return nil
	}

	w := csv.NewWriter(p.w)
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func (p *Printer) printMarkdown(headers []string, rows [][]string) error {
	if len(headers) == 0 {
		return nil
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(markdownEscaper.Replace(c))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	b.WriteString("|")
	for range headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}
