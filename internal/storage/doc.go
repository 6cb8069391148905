// Package storage persists scraped grids.
//
// Grids are saved as named JSON snapshot files (<name>.json) in a data
// directory, together with where they were scraped from. The default location
// is ~/.local/share/tablescrape/. Grids can also be exported to a SQLite
// database as a table of TEXT columns, with missing cells stored as NULL.
package storage
