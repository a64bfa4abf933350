// Package table provides the in-memory columnar table built from decoded
// rows. A table preserves source line order, shares one schema across all
// rows, and is never mutated after construction: filtering produces a new
// table holding the selected rows.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a column's storage type.
type Kind int

const (
	// KindInt stores signed 64-bit integers (integer and fixed-point fields,
	// numeric demographic codes).
	KindInt Kind = iota
	// KindString stores text (free-text fields and padded codes).
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one typed cell of a decoded row.
type Value struct {
	// Kind is the storage type of the cell.
	Kind Kind
	// Int holds the value for KindInt cells. For KindString cells with
	// Numeric set it holds the canonical integer form of the code.
	Int int64
	// Str holds the value for KindString cells.
	Str string
	// Numeric marks a string cell whose canonical comparison form is Int.
	Numeric bool
	// Scale is the number of implied fractional digits for fixed-point
	// integer cells. Presentation metadata: comparisons stay in fixed-point
	// units, writers divide when rendering.
	Scale int
}

// IntValue constructs an integer cell.
func IntValue(v int64) Value {
	return Value{Kind: KindInt, Int: v}
}

// DecimalValue constructs a fixed-point integer cell.
func DecimalValue(units int64, scale int) Value {
	return Value{Kind: KindInt, Int: units, Scale: scale}
}

// StringValue constructs a text cell.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// CodeValue constructs a padded-code cell. If numeric is true, canonical
// holds the code's integer comparison form.
func CodeValue(s string, numeric bool, canonical int64) Value {
	return Value{Kind: KindString, Str: s, Numeric: numeric, Int: canonical}
}

// Row is one decoded record: an ordered mapping from field name to typed
// value. The fields slice is shared across rows decoded under the same
// layout; rows are immutable once created.
type Row struct {
	fields []string
	vals   []Value
}

// NewRow creates a row over the given shared field-name slice.
// len(vals) must equal len(fields).
func NewRow(fields []string, vals []Value) Row {
	return Row{fields: fields, vals: vals}
}

// Fields returns the row's field names in byte order.
func (r Row) Fields() []string {
	return r.fields
}

// Len returns the number of fields.
func (r Row) Len() int {
	return len(r.vals)
}

// Value returns the i-th cell.
func (r Row) Value(i int) Value {
	return r.vals[i]
}

// Column is one typed column of a table.
type Column struct {
	// Name is the field name.
	Name string
	// Kind is the storage type.
	Kind Kind
	// Numeric marks a string column whose codes carry a canonical integer
	// form in Ints.
	Numeric bool
	// Scale is the implied-decimal scale for fixed-point integer columns.
	Scale int
	// Ints holds cell values for KindInt columns, and canonical integer
	// forms for numeric code columns.
	Ints []int64
	// Strs holds cell values for KindString columns.
	Strs []string
}

// Table is an ordered collection of decoded rows in columnar form.
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.rows
}

// Fields returns the column names in schema order.
func (t *Table) Fields() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the table's columns in schema order.
// Callers must not mutate the returned slice.
func (t *Table) Columns() []Column {
	return t.cols
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.cols[i], true
}

// Select returns a new table containing the rows at the given indices, in
// the given order. The receiver is not modified.
func (t *Table) Select(rows []int) *Table {
	out := &Table{
		cols:  make([]Column, len(t.cols)),
		index: make(map[string]int, len(t.cols)),
		rows:  len(rows),
	}
	for i, c := range t.cols {
		nc := Column{Name: c.Name, Kind: c.Kind, Numeric: c.Numeric, Scale: c.Scale}
		if len(c.Ints) > 0 {
			nc.Ints = make([]int64, len(rows))
			for j, r := range rows {
				nc.Ints[j] = c.Ints[r]
			}
		}
		if len(c.Strs) > 0 {
			nc.Strs = make([]string, len(rows))
			for j, r := range rows {
				nc.Strs[j] = c.Strs[r]
			}
		}
		out.cols[i] = nc
		out.index[c.Name] = i
	}
	return out
}

// RowMap returns row i as a field-name keyed map for surface-language
// predicates (expr, script). Integer columns map to int64, fixed-point
// columns to float64 in natural units, string columns to string.
func (t *Table) RowMap(i int) map[string]interface{} {
	m := make(map[string]interface{}, len(t.cols))
	for _, c := range t.cols {
		switch c.Kind {
		case KindInt:
			if c.Scale > 0 {
				m[c.Name] = float64(c.Ints[i]) / pow10(c.Scale)
			} else {
				m[c.Name] = c.Ints[i]
			}
		case KindString:
			m[c.Name] = c.Strs[i]
		}
	}
	return m
}

// RenderCell formats the cell at column c, row i for output writers,
// restoring the implied decimal point on fixed-point columns.
func RenderCell(c *Column, i int) string {
	switch c.Kind {
	case KindInt:
		if c.Scale > 0 {
			return renderFixedPoint(c.Ints[i], c.Scale)
		}
		return strconv.FormatInt(c.Ints[i], 10)
	default:
		return c.Strs[i]
	}
}

// Equal reports whether two tables have identical schemas and cell values
// in identical row order.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for i := range t.cols {
		a, b := &t.cols[i], &o.cols[i]
		if a.Name != b.Name || a.Kind != b.Kind || a.Numeric != b.Numeric || a.Scale != b.Scale {
			return false
		}
		for j := 0; j < t.rows; j++ {
			switch a.Kind {
			case KindInt:
				if a.Ints[j] != b.Ints[j] {
					return false
				}
			case KindString:
				if a.Strs[j] != b.Strs[j] {
					return false
				}
			}
		}
	}
	return true
}

// renderFixedPoint formats units with scale implied fractional digits.
func renderFixedPoint(units int64, scale int) string {
	neg := units < 0
	if neg {
		units = -units
	}
	digits := strconv.FormatInt(units, 10)
	for len(digits) <= scale {
		digits = "0" + digits
	}
	cut := len(digits) - scale
	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteString(digits[:cut])
	sb.WriteByte('.')
	sb.WriteString(digits[cut:])
	return sb.String()
}

// pow10 returns 10^n as a float64 for small n.
func pow10(n int) float64 {
	p := 1.0
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}
