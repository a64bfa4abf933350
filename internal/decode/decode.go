// Package decode converts raw fixed-width records into typed rows per a
// field schema. Decoding is a pure function of the raw line and the layout:
// a record either decodes completely or fails with a DecodeError carrying
// the offending line index, field, and raw content. There is no silent
// truncation, padding, or row-skipping.
package decode

import (
	"strconv"
	"strings"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/errhandling"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/schema"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/table"
)

// Decode converts one raw fixed-width record into a typed row using the
// given layout. line is the 1-based source line index, used only for error
// context.
func Decode(raw string, layout *schema.Layout, line int) (table.Row, error) {
	return decodeWithFields(raw, layout, layout.FieldNames(), line)
}

// decodeWithFields is Decode with a caller-supplied shared field-name
// slice, so streaming decoders avoid re-allocating names per row. fields
// must match layout.FieldNames().
func decodeWithFields(raw string, layout *schema.Layout, fields []string, line int) (table.Row, error) {
	if len(raw) != layout.TotalWidth {
		return table.Row{}, errhandling.NewDecodeError(line, raw,
			"record length "+strconv.Itoa(len(raw))+" does not match layout width "+strconv.Itoa(layout.TotalWidth))
	}

	descs := layout.Fields()
	vals := make([]table.Value, len(descs))
	for i, f := range descs {
		sub := raw[f.Start:f.End()]
		v, err := decodeField(sub, f, raw, line)
		if err != nil {
			return table.Row{}, err
		}
		vals[i] = v
	}
	return table.NewRow(fields, vals), nil
}

// decodeField applies one field descriptor's decode rule to its substring.
func decodeField(sub string, f schema.Field, raw string, line int) (table.Value, error) {
	switch f.Kind {
	case schema.Integer:
		n, err := parseFixedInt(sub)
		if err != nil {
			return table.Value{}, errhandling.NewFieldDecodeError(line, f.Name, raw,
				"cannot parse "+strconv.Quote(sub)+" as integer", err)
		}
		return table.IntValue(n), nil

	case schema.Decimal:
		n, err := parseFixedInt(sub)
		if err != nil {
			return table.Value{}, errhandling.NewFieldDecodeError(line, f.Name, raw,
				"cannot parse "+strconv.Quote(sub)+" as fixed-point decimal", err)
		}
		return table.DecimalValue(n, f.Scale), nil

	case schema.Code:
		if !f.NumericCode {
			return table.CodeValue(sub, false, 0), nil
		}
		n, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return table.Value{}, errhandling.NewFieldDecodeError(line, f.Name, raw,
				"cannot parse code "+strconv.Quote(sub)+" as integer", err)
		}
		return table.CodeValue(sub, true, n), nil

	default: // schema.String
		return table.StringValue(sub), nil
	}
}

// parseFixedInt parses a right-justified base-10 integer field. Leading
// zeros and leading/trailing blanks are permitted; an all-blank field or
// any other non-digit content is an error.
func parseFixedInt(sub string) (int64, error) {
	trimmed := strings.TrimSpace(sub)
	if trimmed == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(trimmed, 10, 64)
}
