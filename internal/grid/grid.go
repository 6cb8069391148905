package grid

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	// ErrKey is returned when a key or fill column does not exist
	ErrKey = errors.New("key error")

	// ErrShapeMismatch is returned when a write falls outside the grid bounds
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Grid is a rows x columns table of optional string cells.
// Every row has exactly len(Columns) cells.
type Grid struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]Cell `json:"rows" yaml:"rows"`
}

// New creates an all-missing grid with the given column labels and row count
func New(columns []string, rows int) *Grid {
	g := &Grid{
		Columns: append(make([]string, 0, len(columns)), columns...),
		Rows:    make([][]Cell, rows),
	}
	for i := range g.Rows {
		g.Rows[i] = make([]Cell, len(columns))
	}
	return g
}

// NumRows returns the number of rows
func (g *Grid) NumRows() int {
	return len(g.Rows)
}

// NumCols returns the number of columns
func (g *Grid) NumCols() int {
	return len(g.Columns)
}

// ColumnIndex returns the position of the first column labelled name
func (g *Grid) ColumnIndex(name string) (int, bool) {
	for i, c := range g.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Get returns the cell at row r, column c
func (g *Grid) Get(r, c int) (Cell, error) {
	if err := g.checkBounds(r, c); err != nil {
		return Missing, err
	}
	return g.Rows[r][c], nil
}

// Set stores cell at row r, column c
func (g *Grid) Set(r, c int, cell Cell) error {
	if err := g.checkBounds(r, c); err != nil {
		return err
	}
	g.Rows[r][c] = cell
	return nil
}

func (g *Grid) checkBounds(r, c int) error {
	if r < 0 || r >= len(g.Rows) || c < 0 || c >= len(g.Columns) {
		return fmt.Errorf("%w: position (%d, %d) outside %dx%d grid", ErrShapeMismatch, r, c, len(g.Rows), len(g.Columns))
	}
	return nil
}

// Column returns a copy of the cells in the first column labelled name
func (g *Grid) Column(name string) ([]Cell, error) {
	idx, ok := g.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: column %q not found", ErrKey, name)
	}
	cells := make([]Cell, len(g.Rows))
	for i, row := range g.Rows {
		cells[i] = row[idx]
	}
	return cells, nil
}

// Validate checks that every row has one cell per column
func (g *Grid) Validate() error {
	for i, row := range g.Rows {
		if len(row) != len(g.Columns) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrShapeMismatch, i, len(row), len(g.Columns))
		}
	}
	return nil
}

// Clone returns a deep copy of the grid
func (g *Grid) Clone() *Grid {
	c := &Grid{
		Columns: append(make([]string, 0, len(g.Columns)), g.Columns...),
		Rows:    make([][]Cell, len(g.Rows)),
	}
	for i, row := range g.Rows {
		c.Rows[i] = append([]Cell(nil), row...)
	}
	return c
}

// UniqueColumns returns the column labels with repeats suffixed ".1", ".2", ...
// Table headers repeat labels often enough that keyed outputs need this.
func (g *Grid) UniqueColumns() []string {
	seen := make(map[string]int, len(g.Columns))
	taken := make(map[string]bool, len(g.Columns))
	for _, c := range g.Columns {
		taken[c] = true
	}

	out := make([]string, len(g.Columns))
	for i, c := range g.Columns {
		n := seen[c]
		seen[c] = n + 1
		if n == 0 {
			out[i] = c
			continue
		}
		name := c + "." + strconv.Itoa(n)
		for taken[name] {
			n++
			name = c + "." + strconv.Itoa(n)
		}
		seen[c] = n + 1
		taken[name] = true
		out[i] = name
	}
	return out
}

// Records returns one map per row keyed by UniqueColumns.
// Missing cells map to nil, which keeps the result usable by JSON encoders and jq.
func (g *Grid) Records() []interface{} {
	cols := g.UniqueColumns()
	records := make([]interface{}, len(g.Rows))
	for i, row := range g.Rows {
		rec := make(map[string]interface{}, len(cols))
		for j, name := range cols {
			rec[name] = row[j].Interface()
		}
		records[i] = rec
	}
	return records
}

// yamlGrid mirrors Grid with pointer cells. yaml.v3 drops null sequence
// elements that decode into a struct, so missing cells travel as nil pointers.
type yamlGrid struct {
	Columns []string    `yaml:"columns"`
	Rows    [][]*string `yaml:"rows"`
}

// MarshalYAML encodes missing cells as null
func (g *Grid) MarshalYAML() (interface{}, error) {
	out := yamlGrid{
		Columns: g.Columns,
		Rows:    make([][]*string, len(g.Rows)),
	}
	for i, row := range g.Rows {
		out.Rows[i] = make([]*string, len(row))
		for j, cell := range row {
			out.Rows[i][j] = cell.ptr()
		}
	}
	return out, nil
}

// UnmarshalYAML decodes null cells as missing
func (g *Grid) UnmarshalYAML(node *yaml.Node) error {
	var in yamlGrid
	if err := node.Decode(&in); err != nil {
		return err
	}
	g.Columns = in.Columns
	g.Rows = make([][]Cell, len(in.Rows))
	for i, row := range in.Rows {
		g.Rows[i] = make([]Cell, len(row))
		for j, p := range row {
			g.Rows[i][j] = cellFromPtr(p)
		}
	}
	return nil
}
