// Package predicate implements the filter engine. This file defines the
// year selector, an implicit predicate conjoined with the caller's filter
// before evaluation.
package predicate

import (
	"sort"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/schema"
)

// YearSelector selects the calendar years a run should include: all years,
// a single year, or a set of years. The zero value selects all years.
type YearSelector struct {
	years []int
}

// AllYears returns a selector that includes every year.
func AllYears() YearSelector {
	return YearSelector{}
}

// Years returns a selector for the given set of years. Duplicates are
// collapsed. An empty argument list selects all years.
func Years(ys ...int) YearSelector {
	if len(ys) == 0 {
		return YearSelector{}
	}
	seen := make(map[int]bool, len(ys))
	out := make([]int, 0, len(ys))
	for _, y := range ys {
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return YearSelector{years: out}
}

// All reports whether the selector includes every year.
func (s YearSelector) All() bool {
	return len(s.years) == 0
}

// List returns the selected years in ascending order, nil for all years.
func (s YearSelector) List() []int {
	return s.years
}

// Expr returns the selector's implicit predicate: Year membership in the
// selected set, or True for all years.
func (s YearSelector) Expr() Expr {
	if s.All() {
		return True{}
	}
	vals := make([]Literal, len(s.years))
	for i, y := range s.years {
		vals[i] = Int(int64(y))
	}
	return InSet{Field: schema.FieldYear, Values: vals}
}
