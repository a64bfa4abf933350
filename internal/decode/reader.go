// Package decode converts raw fixed-width records into typed rows. This
// file implements the streaming reader: it scans fixed-width text lines
// from an io.Reader, resolves the layout for each record's data year
// through the vintage table, and yields rows lazily in source order.
package decode

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/errhandling"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/schema"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/table"
)

// yearWidth is the width of the leading year field, which must sit at
// offset 0 in every vintage so the reader can pick the layout per record.
const yearWidth = 4

// maxLineBytes bounds a single raw line. Published SEER records are 26
// bytes; anything near this limit means the input is not a SEER file.
const maxLineBytes = 1024 * 1024

// Reader streams decoded rows from fixed-width text.
// It implements table.RowSource.
type Reader struct {
	scanner  *bufio.Scanner
	vintages *schema.VintageTable
	line     int

	// last resolved layout, cached because vintages cluster in runs
	lastYear   int
	lastLayout *schema.Layout
	lastFields []string
}

// NewReader creates a streaming decoder over r using the given vintage
// table for per-year layout resolution.
func NewReader(r io.Reader, vintages *schema.VintageTable) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{scanner: sc, vintages: vintages}
}

// Next returns the next decoded row, or io.EOF after the last record.
// Trailing blank lines are tolerated; a blank line anywhere else is a
// decode error like any other malformed record.
func (r *Reader) Next() (table.Row, error) {
	for r.scanner.Scan() {
		r.line++
		raw := strings.TrimRight(r.scanner.Text(), "\r")
		if raw == "" {
			blankLine := r.line
			if r.scanAhead() {
				return table.Row{}, errhandling.NewDecodeError(blankLine, "", "blank record")
			}
			return table.Row{}, io.EOF
		}
		return r.decodeLine(raw)
	}
	if err := r.scanner.Err(); err != nil {
		return table.Row{}, err
	}
	return table.Row{}, io.EOF
}

// decodeLine resolves the record's layout by its year and decodes it.
func (r *Reader) decodeLine(raw string) (table.Row, error) {
	if len(raw) < yearWidth {
		return table.Row{}, errhandling.NewDecodeError(r.line, raw, "record shorter than year field")
	}
	year, err := strconv.Atoi(raw[:yearWidth])
	if err != nil {
		return table.Row{}, errhandling.NewFieldDecodeError(r.line, schema.FieldYear, raw,
			"cannot parse "+strconv.Quote(raw[:yearWidth])+" as year", err)
	}

	layout, fields, err := r.layoutFor(year)
	if err != nil {
		return table.Row{}, errhandling.NewFieldDecodeError(r.line, schema.FieldYear, raw, err.Error(), err)
	}
	return decodeWithFields(raw, layout, fields, r.line)
}

// layoutFor resolves and caches the layout for a data year.
func (r *Reader) layoutFor(year int) (*schema.Layout, []string, error) {
	if r.lastLayout != nil && year == r.lastYear {
		return r.lastLayout, r.lastFields, nil
	}
	layout, err := r.vintages.ForYear(year)
	if err != nil {
		return nil, nil, err
	}
	if layout != r.lastLayout {
		r.lastFields = layout.FieldNames()
	}
	r.lastYear = year
	r.lastLayout = layout
	return layout, r.lastFields, nil
}

// scanAhead reports whether any non-blank line remains after a blank one.
func (r *Reader) scanAhead() bool {
	for r.scanner.Scan() {
		r.line++
		if strings.TrimRight(r.scanner.Text(), "\r") != "" {
			return true
		}
	}
	return false
}

var _ table.RowSource = (*Reader)(nil)
