package dataset

import (
	"math"
	"strings"
)

// ColumnKind tags the type of a column, decided once at load time.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindDatetime    ColumnKind = "datetime"
	KindText        ColumnKind = "text"
)

// Column is a named, typed value sequence. Values holds the raw cells with ""
// meaning null. For numeric columns, Floats holds the parsed values with NaN
// for cells that are null or failed to parse.
type Column struct {
	Name   string
	Kind   ColumnKind
	Values []string
	Floats []float64
}

// NullCount returns the number of empty cells in the column.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v == "" {
			n++
		}
	}
	return n
}

// Numbers returns the non-NaN parsed values of a numeric column.
func (c *Column) Numbers() []float64 {
	out := make([]float64, 0, len(c.Floats))
	for _, v := range c.Floats {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Dataset is an in-memory table owned by the session that loaded it.
type Dataset struct {
	Name    string
	Columns []Column
	Rows    int
}

// NumericColumns returns the indices of numeric columns in column order.
func (d *Dataset) NumericColumns() []int {
	var idx []int
	for i := range d.Columns {
		if d.Columns[i].Kind == KindNumeric {
			idx = append(idx, i)
		}
	}
	return idx
}

// DuplicateRows counts rows that are exact repeats of an earlier row.
func (d *Dataset) DuplicateRows() int {
	if d.Rows == 0 || len(d.Columns) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, d.Rows)
	dups := 0
	var b strings.Builder
	for r := 0; r < d.Rows; r++ {
		b.Reset()
		for c := range d.Columns {
			b.WriteString(d.Columns[c].Values[r])
			b.WriteByte('\x1f')
		}
		key := b.String()
		if _, ok := seen[key]; ok {
			dups++
		} else {
			seen[key] = struct{}{}
		}
	}
	return dups
}
