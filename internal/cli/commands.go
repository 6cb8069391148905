package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/tablescrape/internal/grid"
	"github.com/pfrederiksen/tablescrape/internal/logger"
	"github.com/pfrederiksen/tablescrape/internal/output"
	"github.com/pfrederiksen/tablescrape/internal/storage"
)

// tableInfo describes one located table
type tableInfo struct {
	Index   int      `json:"index" yaml:"index"`
	Caption string   `json:"caption" yaml:"caption"`
	Rows    int      `json:"rows" yaml:"rows"`
	Headers int      `json:"headers" yaml:"headers"`
	Classes []string `json:"classes" yaml:"classes"`
}

func newTablesCmd(a *app) *cobra.Command {
	var (
		src         sourceFlags
		headerAttrs []string
	)

	cmd := &cobra.Command{
		Use:   "tables <url|file|->",
		Short: "List the tables matching the filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			header, err := headerFilter(headerAttrs)
			if err != nil {
				return err
			}
			found, err := a.locate(cmd.Context(), cmd, &src, args[0])
			if err != nil {
				return err
			}

			infos := make([]tableInfo, 0, len(found.Tables))
			listing := output.Table{Headers: []string{"INDEX", "ROWS", "HEADERS", "CAPTION", "CLASSES"}}
			for _, t := range found.Tables {
				headers, err := header.Find(t.Selection)
				if err != nil {
					return err
				}
				info := tableInfo{
					Index:   t.Index,
					Caption: t.Caption(),
					Rows:    t.RowCount(),
					Headers: headers.Length(),
					Classes: t.Classes(),
				}
				if info.Classes == nil {
					info.Classes = []string{}
				}
				infos = append(infos, info)
				listing.Rows = append(listing.Rows, []string{
					strconv.Itoa(info.Index),
					strconv.Itoa(info.Rows),
					strconv.Itoa(info.Headers),
					info.Caption,
					strings.Join(info.Classes, " "),
				})
			}

			p, err := a.printer(cmd)
			if err != nil {
				return err
			}
			return p.PrintList(listing, infos)
		},
	}

	src.register(cmd)
	cmd.Flags().StringArrayVar(&headerAttrs, "header-attr", nil, "Attribute predicate header <th> cells must match, key=value or key (repeatable)")
	return cmd
}

func newGridCmd(a *app) *cobra.Command {
	var (
		src         sourceFlags
		build       buildFlags
		index       int
		all         bool
		saveName    string
		sqlitePath  string
		sqliteTable string
	)

	cmd := &cobra.Command{
		Use:   "grid <url|file|->",
		Short: "Convert a table into a grid with merged cells expanded",
		Long: `Convert a table into a grid. Column labels come from the header cells,
every row after the first becomes a grid row, and rowspan/colspan cells are
copied into every position they cover.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if saveName != "" {
				if err := storage.ValidateName(saveName); err != nil {
					return err
				}
			}
			opts, err := build.options()
			if err != nil {
				return err
			}

			found, err := a.locate(cmd.Context(), cmd, &src, args[0])
			if err != nil {
				return err
			}

			selected := found.Tables
			if !all {
				if index < 0 || index >= len(found.Tables) {
					return fmt.Errorf("table index %d out of range (found %d matching tables)", index, len(found.Tables))
				}
				selected = found.Tables[index : index+1]
			}

			p, err := a.printer(cmd)
			if err != nil {
				return err
			}

			var store *storage.Storage
			if saveName != "" {
				if store, err = a.storage(); err != nil {
					return err
				}
			}

			for n, t := range selected {
				var g *grid.Grid
				err := a.metrics.Time("build", func() error {
					var buildErr error
					g, buildErr = t.Build(opts)
					return buildErr
				})
				if err != nil {
					return fmt.Errorf("table %d: %w", t.Index, err)
				}
				a.metrics.IncrCounter("grids.built")
				a.metrics.SetGauge("grid.rows", float64(g.NumRows()))
				a.log.Debug("Built grid", logger.Fields{
					"table_index": t.Index,
					"rows":        g.NumRows(),
					"columns":     g.NumCols(),
				})

				if saveName != "" {
					name := saveName
					if all {
						name = fmt.Sprintf("%s-%d", saveName, t.Index)
					}
					if err := store.SaveGrid(name, found.Location, t.Index, g); err != nil {
						return err
					}
					a.log.Info("Saved snapshot", logger.Fields{"name": name})
				}

				if sqlitePath != "" {
					name := sqliteTable
					if name == "" {
						name = saveName
					}
					if name == "" {
						name = "grid"
					}
					if all {
						name = fmt.Sprintf("%s_%d", name, t.Index)
					}
					if err := storage.ExportSQLite(cmd.Context(), sqlitePath, name, g); err != nil {
						return err
					}
					a.log.Info("Exported to SQLite", logger.Fields{"path": sqlitePath, "table": name})
				}

				if all && !output.IsStructured(p.Format()) {
					if n > 0 {
						fmt.Fprintln(cmd.OutOrStdout())
					}
					heading := fmt.Sprintf("# table %d", t.Index)
					if caption := t.Caption(); caption != "" {
						heading += ": " + caption
					}
					fmt.Fprintln(cmd.OutOrStdout(), heading)
				}
				if err := p.PrintGrid(g); err != nil {
					return err
				}
			}
			return nil
		},
	}

	src.register(cmd)
	build.register(cmd)
	cmd.Flags().IntVar(&index, "index", 0, "Position of the table among the matches")
	cmd.Flags().BoolVar(&all, "all", false, "Convert every matching table")
	cmd.Flags().StringVar(&saveName, "save", "", "Store the grid as a named snapshot (with --all, NAME-INDEX)")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Also export the grid into this SQLite database")
	cmd.Flags().StringVar(&sqliteTable, "sqlite-table", "", "SQLite table name (default the --save name, or grid)")
	cmd.MarkFlagsMutuallyExclusive("index", "all")

	return cmd
}

func newFillCmd(a *app) *cobra.Command {
	var (
		target   string
		source   string
		key      string
		columns  []string
		saveName string
	)

	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill missing values in one snapshot from another by a key column",
		Long: `Fill missing values in the target snapshot using the source snapshot.
For each fill column, a missing target value is replaced by the source value
from the first source row whose key equals the target row's key. Present
values are never overwritten and the source is not modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if saveName != "" {
				if err := storage.ValidateName(saveName); err != nil {
					return err
				}
			}

			store, err := a.storage()
			if err != nil {
				return err
			}

			targetSnap, err := store.LoadSnapshot(target)
			if err != nil {
				return err
			}
			sourceGrid, err := store.LoadGrid(source)
			if err != nil {
				return err
			}

			g := targetSnap.Grid
			before := countMissing(g)
			if err := grid.FillByMap(g, sourceGrid, key, columns); err != nil {
				return err
			}
			filled := before - countMissing(g)
			a.metrics.SetGauge("cells.filled", float64(filled))
			a.log.Info("Filled missing cells", logger.Fields{
				"target":  target,
				"source":  source,
				"key":     key,
				"columns": columns,
				"filled":  filled,
			})

			if saveName != "" {
				if err := store.SaveGrid(saveName, targetSnap.SourceURL, targetSnap.TableIndex, g); err != nil {
					return err
				}
			}

			p, err := a.printer(cmd)
			if err != nil {
				return err
			}
			return p.PrintGrid(g)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Snapshot whose missing values are filled (required)")
	cmd.Flags().StringVar(&source, "source", "", "Snapshot providing the lookup (required)")
	cmd.Flags().StringVar(&key, "key", "", "Key column present in both snapshots (required)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to fill, comma-separated (required)")
	cmd.Flags().StringVar(&saveName, "save", "", "Store the filled grid as a named snapshot")
	cmd.MarkFlagRequired("target")  // nolint:errcheck
	cmd.MarkFlagRequired("source")  // nolint:errcheck
	cmd.MarkFlagRequired("key")     // nolint:errcheck
	cmd.MarkFlagRequired("columns") // nolint:errcheck

	return cmd
}

func countMissing(g *grid.Grid) int {
	n := 0
	for _, row := range g.Rows {
		for _, cell := range row {
			if !cell.Valid {
				n++
			}
		}
	}
	return n
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage()
			if err != nil {
				return err
			}
			g, err := store.LoadGrid(args[0])
			if err != nil {
				return err
			}

			p, err := a.printer(cmd)
			if err != nil {
				return err
			}
			return p.PrintGrid(g)
		},
	}
}

// snapshotInfo describes one stored snapshot
type snapshotInfo struct {
	Name       string `json:"name" yaml:"name"`
	SourceURL  string `json:"source_url" yaml:"source_url"`
	TableIndex int    `json:"table_index" yaml:"table_index"`
	Rows       int    `json:"rows" yaml:"rows"`
	Columns    int    `json:"columns" yaml:"columns"`
	SavedAt    string `json:"saved_at" yaml:"saved_at"`
}

func newSnapshotsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage()
			if err != nil {
				return err
			}
			snapshots, err := store.List()
			if err != nil {
				return err
			}

			infos := make([]snapshotInfo, 0, len(snapshots))
			listing := output.Table{Headers: []string{"NAME", "ROWS", "COLUMNS", "TABLE", "SAVED", "SOURCE"}}
			for _, s := range snapshots {
				info := snapshotInfo{
					Name:       s.Name,
					SourceURL:  s.SourceURL,
					TableIndex: s.TableIndex,
					Rows:       s.Grid.NumRows(),
					Columns:    s.Grid.NumCols(),
					SavedAt:    s.SavedAt,
				}
				infos = append(infos, info)
				listing.Rows = append(listing.Rows, []string{
					info.Name,
					strconv.Itoa(info.Rows),
					strconv.Itoa(info.Columns),
					strconv.Itoa(info.TableIndex),
					info.SavedAt,
					info.SourceURL,
				})
			}

			p, err := a.printer(cmd)
			if err != nil {
				return err
			}
			return p.PrintList(listing, infos)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>...",
		Short: "Delete stored snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := store.Delete(name); err != nil {
					return err
				}
				a.log.Info("Deleted snapshot", logger.Fields{"name": name})
			}
			return nil
		},
	})

	return cmd
}
