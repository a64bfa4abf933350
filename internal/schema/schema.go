// Package schema defines the immutable positional layout of the SEER
// fixed-width population files. A layout is an ordered sequence of field
// descriptors mapping byte ranges to typed fields; layouts are static data
// shared read-only by all decode workers.
package schema

import (
	"fmt"
	"sort"
)

// FieldKind identifies how a field's byte range is decoded.
type FieldKind int

const (
	// Integer is a base-10 integer; leading zeros permitted, no separators.
	Integer FieldKind = iota
	// Decimal is a base-10 integer with an implied decimal point. The
	// per-field Scale gives the number of implied fractional digits; values
	// are carried in fixed-point units and scaled at render time.
	Decimal
	// String is free text retained as-is.
	String
	// Code is a zero-padded categorical code retained in its padded textual
	// form. A code with NumericCode set declares its canonical comparison
	// form to be the equivalent integer.
	Code
)

// String returns the kind name.
func (k FieldKind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Decimal:
		return "decimal"
	case String:
		return "string"
	case Code:
		return "code"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Canonical field names for the SEER population layout. Predicates and
// writers should reference fields through these constants rather than
// ad-hoc strings.
const (
	FieldYear       = "Year"
	FieldState      = "State"
	FieldStateFIPS  = "State_FIPS"
	FieldCountyFIPS = "County_FIPS"
	FieldRegistry   = "Registry"
	FieldRace       = "Race_Code"
	FieldOrigin     = "Origin_Code"
	FieldSex        = "Sex_Code"
	FieldAge        = "Age"
	FieldPopulation = "Population"
)

// Field describes one positional field of a fixed-width record.
type Field struct {
	// Name is the canonical field name.
	Name string
	// Start is the 0-based inclusive byte offset.
	Start int
	// Width is the field width in bytes.
	Width int
	// Kind selects the decode rule.
	Kind FieldKind
	// Scale is the number of implied fractional digits (Decimal only).
	Scale int
	// NumericCode declares a Code field's canonical comparison form to be
	// its integer value rather than the padded text.
	NumericCode bool
}

// End returns the exclusive end offset of the field.
func (f Field) End() int {
	return f.Start + f.Width
}

// Layout is the immutable positional layout of one release vintage.
// Fields are ordered by byte offset so a decoder can apply them
// sequentially without seeking. Gaps between fields are permitted and
// ignored; overlaps are not.
type Layout struct {
	// Name identifies the layout (e.g. "seer.single-age.26").
	Name string
	// TotalWidth is the declared record width. Records of any other length
	// are a decode error.
	TotalWidth int

	fields []Field
	index  map[string]int
}

// NewLayout builds a layout from an ordered field list and validates it.
func NewLayout(name string, totalWidth int, fields []Field) (*Layout, error) {
	l := &Layout{
		Name:       name,
		TotalWidth: totalWidth,
		fields:     fields,
		index:      make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		l.index[f.Name] = i
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// MustLayout is NewLayout for static layout tables; it panics on an invalid
// layout, which indicates a programming error in the vintage table.
func MustLayout(name string, totalWidth int, fields []Field) *Layout {
	l, err := NewLayout(name, totalWidth, fields)
	if err != nil {
		panic(err)
	}
	return l
}

// Fields returns the ordered field descriptors.
// Callers must not mutate the returned slice.
func (l *Layout) Fields() []Field {
	return l.fields
}

// Field looks up a field descriptor by name.
func (l *Layout) Field(name string) (Field, bool) {
	i, ok := l.index[name]
	if !ok {
		return Field{}, false
	}
	return l.fields[i], true
}

// FieldNames returns the field names in byte order.
func (l *Layout) FieldNames() []string {
	names := make([]string, len(l.fields))
	for i, f := range l.fields {
		names[i] = f.Name
	}
	return names
}

// validate checks the layout invariants: positive widths, byte ordering,
// no overlapping ranges, no field past the declared total width, and
// unique names.
func (l *Layout) validate() error {
	if l.TotalWidth <= 0 {
		return fmt.Errorf("layout %s: total width must be positive, got %d", l.Name, l.TotalWidth)
	}
	if len(l.fields) == 0 {
		return fmt.Errorf("layout %s: no fields", l.Name)
	}
	if len(l.index) != len(l.fields) {
		return fmt.Errorf("layout %s: duplicate field names", l.Name)
	}
	if !sort.SliceIsSorted(l.fields, func(i, j int) bool {
		return l.fields[i].Start < l.fields[j].Start
	}) {
		return fmt.Errorf("layout %s: fields must be ordered by start offset", l.Name)
	}
	prevEnd := 0
	for _, f := range l.fields {
		if f.Start < 0 {
			return fmt.Errorf("layout %s: field %s has negative start offset", l.Name, f.Name)
		}
		if f.Width <= 0 {
			return fmt.Errorf("layout %s: field %s has non-positive width", l.Name, f.Name)
		}
		if f.Start < prevEnd {
			return fmt.Errorf("layout %s: field %s overlaps previous field", l.Name, f.Name)
		}
		if f.End() > l.TotalWidth {
			return fmt.Errorf("layout %s: field %s extends past total width %d", l.Name, f.Name, l.TotalWidth)
		}
		if f.Kind == Decimal && f.Scale <= 0 {
			return fmt.Errorf("layout %s: decimal field %s requires a positive scale", l.Name, f.Name)
		}
		if f.Kind != Decimal && f.Scale != 0 {
			return fmt.Errorf("layout %s: field %s has a scale but is not decimal", l.Name, f.Name)
		}
		prevEnd = f.End()
	}
	return nil
}
