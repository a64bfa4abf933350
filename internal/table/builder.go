// Package table provides the in-memory columnar table built from decoded
// rows. This file implements the builder, which consumes a lazy row source
// so the raw file never needs to be materialized ahead of decoding.
package table

import (
	"errors"
	"io"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/errhandling"
)

// RowSource yields decoded rows in source line order.
// Next returns io.EOF after the last row.
type RowSource interface {
	Next() (Row, error)
}

// Build assembles a stream of decoded rows into a table, preserving arrival
// order. The first row fixes the table schema; any later row whose field
// set or cell types differ fails with a SchemaMismatchError. That guard
// should never fire under a fixed layout and indicates a decoder bug.
func Build(src RowSource) (*Table, error) {
	t := &Table{index: make(map[string]int)}

	for {
		row, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return t, nil
			}
			return nil, err
		}

		if t.rows == 0 && len(t.cols) == 0 {
			initColumns(t, row)
		} else if err := checkRow(t, row); err != nil {
			return nil, err
		}

		appendRow(t, row)
		t.rows++
	}
}

// FromRows builds a table from an in-memory row slice.
func FromRows(rows []Row) (*Table, error) {
	return Build(&sliceSource{rows: rows})
}

// sliceSource adapts a row slice to the RowSource interface.
type sliceSource struct {
	rows []Row
	pos  int
}

func (s *sliceSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

// initColumns fixes the table schema from the first row.
func initColumns(t *Table, row Row) {
	fields := row.Fields()
	t.cols = make([]Column, len(fields))
	for i, name := range fields {
		v := row.Value(i)
		t.cols[i] = Column{
			Name:    name,
			Kind:    v.Kind,
			Numeric: v.Numeric,
			Scale:   v.Scale,
		}
		t.index[name] = i
	}
}

// checkRow verifies a row against the fixed table schema.
func checkRow(t *Table, row Row) error {
	fields := row.Fields()
	if len(fields) != len(t.cols) {
		return mismatch(t, row)
	}
	for i, name := range fields {
		c := &t.cols[i]
		v := row.Value(i)
		if c.Name != name || c.Kind != v.Kind || c.Numeric != v.Numeric || c.Scale != v.Scale {
			return mismatch(t, row)
		}
	}
	return nil
}

// appendRow appends one row's cells to the column storage.
func appendRow(t *Table, row Row) {
	for i := range t.cols {
		c := &t.cols[i]
		v := row.Value(i)
		switch c.Kind {
		case KindInt:
			c.Ints = append(c.Ints, v.Int)
		case KindString:
			c.Strs = append(c.Strs, v.Str)
			if c.Numeric {
				c.Ints = append(c.Ints, v.Int)
			}
		}
	}
}

// mismatch builds the SchemaMismatchError describing how the row's field
// set diverges from the table schema.
func mismatch(t *Table, row Row) error {
	have := make(map[string]bool, row.Len())
	for _, name := range row.Fields() {
		have[name] = true
	}
	want := make(map[string]bool, len(t.cols))
	for _, c := range t.cols {
		want[c.Name] = true
	}

	e := &errhandling.SchemaMismatchError{Line: t.rows + 1}
	for _, c := range t.cols {
		if !have[c.Name] {
			e.Missing = append(e.Missing, c.Name)
		}
	}
	for _, name := range row.Fields() {
		if !want[name] {
			e.Extra = append(e.Extra, name)
		}
	}
	if len(e.Missing) == 0 && len(e.Extra) == 0 {
		// Same names, diverging cell types.
		e.Extra = append(e.Extra, "(type change)")
	}
	return e
}
