package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/pfrederiksen/tablescrape/internal/grid"

	_ "modernc.org/sqlite"
)

// ExportSQLite writes g into table of the SQLite database at path, replacing
// any existing table of that name. Every column is TEXT; missing cells are NULL.
// Duplicate or empty header labels are made unique.
func ExportSQLite(ctx context.Context, path, table string, g *grid.Grid) error {
	if table == "" {
		return fmt.Errorf("sqlite export: empty table name")
	}
	if g.NumCols() == 0 {
		return fmt.Errorf("sqlite export: %w: grid has no columns", grid.ErrShapeMismatch)
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("sqlite export: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	columns := sqlColumns(g)
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quoteIdent(c) + " TEXT"
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(table)); err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+quoteIdent(table)+` (`+strings.Join(defs, ", ")+`)`); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(table)+` (`+strings.Join(quoted, ", ")+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for r, row := range g.Rows {
		for c, cell := range row {
			args[c] = cell.Interface()
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting row %d: %w", r, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// sqlColumns returns non-empty column names for g that are unique under
// SQLite's case-insensitive comparison. Empty labels become column_N and
// repeats get a ".N" suffix.
func sqlColumns(g *grid.Grid) []string {
	base := make([]string, len(g.Columns))
	taken := make(map[string]bool, len(g.Columns))
	for i, c := range g.Columns {
		if strings.TrimSpace(c) == "" {
			c = fmt.Sprintf("column_%d", i+1)
		}
		base[i] = c
		taken[strings.ToLower(c)] = true
	}

	columns := make([]string, len(base))
	used := make(map[string]bool, len(base))
	for i, c := range base {
		name := c
		if used[strings.ToLower(c)] {
			for n := 1; taken[strings.ToLower(name)]; n++ {
				name = c + "." + strconv.Itoa(n)
			}
		}
		taken[strings.ToLower(name)] = true
		used[strings.ToLower(name)] = true
		columns[i] = name
	}
	return columns
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
