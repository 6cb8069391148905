// Package scraper fetches web pages and locates the HTML tables in them.
//
// A Scraper combines a Fetcher, which retrieves the page (plain HTTP, or a
// headless browser for tables rendered by JavaScript), with a named parsing
// strategy. GetTables returns the tables matching a table.Filter in document
// order; the default filter selects tables with class "wikitable".
//
// A failed fetch or a non-2xx response is an ErrNetwork error, never an empty
// result, so "no tables found" and "could not fetch" stay distinguishable.
package scraper
