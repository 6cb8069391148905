package grid

import (
	"encoding/json"
	"fmt"
)

// Cell is a single grid value. Valid is false when the cell is missing.
type Cell struct {
	Value string
	Valid bool
}

// Missing is the zero Cell
var Missing = Cell{}

// Str returns a present cell holding s
func Str(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// String returns the value, or the empty string for a missing cell
func (c Cell) String() string {
	return c.Value
}

// Interface returns the value as a string, or nil for a missing cell
func (c Cell) Interface() interface{} {
	if !c.Valid {
		return nil
	}
	return c.Value
}

// MarshalJSON encodes a missing cell as null
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON decodes null as a missing cell
func (c *Cell) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Missing
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding cell: %w", err)
	}
	*c = Str(s)
	return nil
}

func (c Cell) ptr() *string {
	if !c.Valid {
		return nil
	}
	v := c.Value
	return &v
}

func cellFromPtr(p *string) Cell {
	if p == nil {
		return Missing
	}
	return Str(*p)
}
