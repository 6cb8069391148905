// Package cli implements the command-line interface for tablescrape.
//
// The cli package provides the Cobra-based CLI. It lists the tables on a page,
// converts them into grids with merged cells expanded, back-fills one stored
// grid from another by a shared key column, and manages saved snapshots. It
// coordinates the scraper, table, grid, storage and output packages, and maps
// error kinds to process exit codes.
package cli
