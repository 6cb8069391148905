// Package table converts HTML <table> elements into grids.
//
// Tables are located with a Filter (tag name plus attribute predicates, with an
// optional CSS selector) and converted with Build. Build labels the columns from
// the table's header cells and expands rowspan/colspan so that a merged cell's
// text appears in every grid position it covers. Cell text passes through a
// Cleaner, which by default strips trailing footnote markers like "[1]" and
// newlines.
package table
