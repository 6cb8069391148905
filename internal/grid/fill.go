package grid

import "fmt"

// FillByMap fills missing cells of target from source.
//
// For each column in fillCols, a missing target cell is replaced with the value
// of the same-named source column at the source row whose key column equals the
// target row's key. Present target cells are never overwritten, and target rows
// whose key is missing or unknown to source stay missing. When source repeats a
// key, its first row wins. source is only read.
//
// All column names are checked before target is touched; a missing key or fill
// column returns ErrKey and leaves target unchanged.
func FillByMap(target, source *Grid, key string, fillCols []string) error {
	targetKey, ok := target.ColumnIndex(key)
	if !ok {
		return fmt.Errorf("%w: key column %q not in target", ErrKey, key)
	}
	sourceKey, ok := source.ColumnIndex(key)
	if !ok {
		return fmt.Errorf("%w: key column %q not in source", ErrKey, key)
	}

	type colPair struct {
		target, source int
	}
	pairs := make([]colPair, 0, len(fillCols))
	for _, name := range fillCols {
		t, ok := target.ColumnIndex(name)
		if !ok {
			return fmt.Errorf("%w: fill column %q not in target", ErrKey, name)
		}
		s, ok := source.ColumnIndex(name)
		if !ok {
			return fmt.Errorf("%w: fill column %q not in source", ErrKey, name)
		}
		pairs = append(pairs, colPair{target: t, source: s})
	}

	// key value -> source row
	lookup := make(map[string]int, len(source.Rows))
	for i, row := range source.Rows {
		k := row[sourceKey]
		if !k.Valid {
			continue
		}
		if _, seen := lookup[k.Value]; !seen {
			lookup[k.Value] = i
		}
	}

	for _, p := range pairs {
		for _, row := range target.Rows {
			if row[p.target].Valid {
				continue
			}
			k := row[targetKey]
			if !k.Valid {
				continue
			}
			if src, found := lookup[k.Value]; found {
				row[p.target] = source.Rows[src][p.source]
			}
		}
	}

	return nil
}
