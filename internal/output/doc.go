// Package output renders grids and listings for the command line.
//
// Grids can be written as aligned tables, key/value text, JSON, NDJSON, YAML,
// CSV or Markdown. Structured formats keep missing cells as null; the textual
// ones print them as empty strings. A jq expression (github.com/itchyny/gojq)
// can filter structured output; it runs over the grid's records, one object
// per row keyed by column label.
package output
