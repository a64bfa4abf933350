// Package schema defines the fixed-width layouts of the SEER population
// files. This file resolves layouts by release vintage: offsets and widths
// are not guaranteed to be identical across the full 1990-2023 range, so
// resolution goes through a configurable year table rather than a single
// constant. The year field itself must sit at the same offset in every
// vintage so a reader can pick the layout per record.
package schema

import "fmt"

// SingleAgeLayout is the SEER single-year-of-age county population layout
// per the seer.cancer.gov popdata data dictionary. 26 characters per record.
var SingleAgeLayout = MustLayout("seer.single-age.26", 26, []Field{
	{Name: FieldYear, Start: 0, Width: 4, Kind: Integer},
	{Name: FieldState, Start: 4, Width: 2, Kind: String},
	{Name: FieldStateFIPS, Start: 6, Width: 2, Kind: Code, NumericCode: true},
	{Name: FieldCountyFIPS, Start: 8, Width: 3, Kind: Code, NumericCode: true},
	{Name: FieldRegistry, Start: 11, Width: 2, Kind: Code},
	{Name: FieldRace, Start: 13, Width: 1, Kind: Integer},
	{Name: FieldOrigin, Start: 14, Width: 1, Kind: Integer},
	{Name: FieldSex, Start: 15, Width: 1, Kind: Integer},
	{Name: FieldAge, Start: 16, Width: 2, Kind: Integer},
	{Name: FieldPopulation, Start: 18, Width: 8, Kind: Integer},
})

// yearSpan maps an inclusive year range to a layout.
type yearSpan struct {
	from, to int
	layout   *Layout
}

// VintageTable resolves the record layout for a given data year.
// The zero value is unusable; construct with NewVintageTable.
type VintageTable struct {
	spans []yearSpan
}

// NewVintageTable creates an empty vintage table.
func NewVintageTable() *VintageTable {
	return &VintageTable{}
}

// Add registers a layout for the inclusive year range [from, to].
// Ranges must not overlap previously added ranges.
func (t *VintageTable) Add(from, to int, layout *Layout) error {
	if from > to {
		return fmt.Errorf("vintage range %d-%d is inverted", from, to)
	}
	if layout == nil {
		return fmt.Errorf("vintage range %d-%d has nil layout", from, to)
	}
	for _, s := range t.spans {
		if from <= s.to && to >= s.from {
			return fmt.Errorf("vintage range %d-%d overlaps %d-%d", from, to, s.from, s.to)
		}
	}
	t.spans = append(t.spans, yearSpan{from: from, to: to, layout: layout})
	return nil
}

// ForYear resolves the layout for the given data year.
func (t *VintageTable) ForYear(year int) (*Layout, error) {
	for _, s := range t.spans {
		if year >= s.from && year <= s.to {
			return s.layout, nil
		}
	}
	return nil, fmt.Errorf("no layout registered for year %d", year)
}

// DefaultVintages returns the vintage table for the published SEER
// 1990-2023 single-age files. The single-age layout has been stable across
// the range; a vintage-specific layout slots in here if a future release
// changes offsets.
func DefaultVintages() *VintageTable {
	t := NewVintageTable()
	// Registered range is wider than the published files so adjacent
	// vintages resolve without a table update.
	if err := t.Add(1969, 2030, SingleAgeLayout); err != nil {
		panic(err)
	}
	return t
}
