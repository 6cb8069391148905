// Package grid provides the tabular structure produced from an HTML table.
//
// A Grid is an ordered list of column labels and an ordered list of rows. Each
// row holds exactly one Cell per column. Cells are optional strings: a cell that
// was never written by the table builder is missing rather than empty, so a
// blank table cell and an absent one stay distinguishable.
//
// FillByMap back-fills missing values in one grid from a second grid that shares
// a key column.
package grid
