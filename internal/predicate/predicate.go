// Package predicate implements the filter engine: a closed set of tagged
// expression variants over named fields, validated against a table's
// column model before any row is evaluated, then applied non-destructively
// to produce a reduced table.
//
// Comparisons are type-aware. Integer fields compare numerically; string
// and code fields compare by their canonical form. Comparing a numeric
// literal against a non-numeric field (or vice versa) is a construction
// time error, never a silent false; the only sanctioned crossover is a
// code field whose schema declares an integer canonical form.
package predicate

import (
	"fmt"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/errhandling"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/table"
)

// Op is a comparison operator.
type Op int

// Comparison operators.
const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// String returns the operator's config-surface name.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpGt:
		return "gt"
	case OpGe:
		return "ge"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// litKind tags a literal's type.
type litKind int

const (
	litInt litKind = iota
	litString
)

// Literal is a typed comparison operand.
type Literal struct {
	kind litKind
	i    int64
	s    string
}

// Int constructs an integer literal.
func Int(v int64) Literal {
	return Literal{kind: litInt, i: v}
}

// Str constructs a string literal.
func Str(v string) Literal {
	return Literal{kind: litString, s: v}
}

// String renders the literal for error messages.
func (l Literal) String() string {
	if l.kind == litInt {
		return fmt.Sprintf("%d", l.i)
	}
	return fmt.Sprintf("%q", l.s)
}

// Expr is a filter predicate: a composable, stateless expression tree over
// column references, comparisons, set membership, and boolean combinators.
type Expr interface {
	isExpr()
}

// Comparison compares a named field against a literal.
type Comparison struct {
	Field string
	Op    Op
	Value Literal
}

// And is the conjunction of two predicates.
type And struct {
	Left, Right Expr
}

// Or is the disjunction of two predicates.
type Or struct {
	Left, Right Expr
}

// Not negates a predicate.
type Not struct {
	Expr Expr
}

// InSet tests a named field for membership in a literal set.
type InSet struct {
	Field  string
	Values []Literal
}

// True matches every row. It is the identity element for conjunction.
type True struct{}

func (Comparison) isExpr() {}
func (And) isExpr()        {}
func (Or) isExpr()         {}
func (Not) isExpr()        {}
func (InSet) isExpr()      {}
func (True) isExpr()       {}

// Conjoin folds the given predicates into a conjunction, dropping nils
// and True terms. With no effective terms it returns True.
func Conjoin(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if _, ok := e.(True); ok {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = And{Left: out, Right: e}
	}
	if out == nil {
		return True{}
	}
	return out
}

// Compile validates e against the table's column model and returns a row
// evaluator. All field references and operand types are checked here,
// before any row is evaluated; Compile failing means Apply never touches
// the data. Short-circuit evaluation is used in the returned closure,
// which cannot affect the result since predicates are pure.
func Compile(e Expr, t *table.Table) (func(row int) bool, error) {
	switch v := e.(type) {
	case True:
		return func(int) bool { return true }, nil

	case And:
		l, err := Compile(v.Left, t)
		if err != nil {
			return nil, err
		}
		r, err := Compile(v.Right, t)
		if err != nil {
			return nil, err
		}
		return func(row int) bool { return l(row) && r(row) }, nil

	case Or:
		l, err := Compile(v.Left, t)
		if err != nil {
			return nil, err
		}
		r, err := Compile(v.Right, t)
		if err != nil {
			return nil, err
		}
		return func(row int) bool { return l(row) || r(row) }, nil

	case Not:
		inner, err := Compile(v.Expr, t)
		if err != nil {
			return nil, err
		}
		return func(row int) bool { return !inner(row) }, nil

	case Comparison:
		return compileComparison(v, t)

	case InSet:
		return compileInSet(v, t)

	case nil:
		return nil, errhandling.NewInvalidPredicateError("", "nil expression")

	default:
		return nil, errhandling.NewInvalidPredicateError("", fmt.Sprintf("unknown expression variant %T", e))
	}
}

// compileComparison binds a comparison to its column and checks operand
// types.
func compileComparison(c Comparison, t *table.Table) (func(row int) bool, error) {
	col, ok := t.Column(c.Field)
	if !ok {
		return nil, errhandling.NewInvalidPredicateError(c.Field, "field not present in table schema")
	}
	if c.Op < OpEq || c.Op > OpGe {
		return nil, errhandling.NewInvalidPredicateError(c.Field, fmt.Sprintf("unknown operator %v", c.Op))
	}

	switch {
	case c.Value.kind == litInt && col.Kind == table.KindInt:
		lit := c.Value.i
		op := c.Op
		ints := col.Ints
		return func(row int) bool { return cmpInt(ints[row], lit, op) }, nil

	case c.Value.kind == litInt && col.Kind == table.KindString && col.Numeric:
		// Code field with a declared integer canonical form.
		lit := c.Value.i
		op := c.Op
		ints := col.Ints
		return func(row int) bool { return cmpInt(ints[row], lit, op) }, nil

	case c.Value.kind == litString && col.Kind == table.KindString:
		lit := c.Value.s
		op := c.Op
		strs := col.Strs
		return func(row int) bool { return cmpStr(strs[row], lit, op) }, nil

	default:
		return nil, errhandling.NewInvalidPredicateError(c.Field, fmt.Sprintf(
			"cannot compare %s field with literal %s (no implicit coercion across decode kinds)",
			col.Kind, c.Value))
	}
}

// compileInSet binds a set-membership test to its column. The literal set
// must be homogeneous and match the column's canonical comparison type.
func compileInSet(s InSet, t *table.Table) (func(row int) bool, error) {
	col, ok := t.Column(s.Field)
	if !ok {
		return nil, errhandling.NewInvalidPredicateError(s.Field, "field not present in table schema")
	}
	if len(s.Values) == 0 {
		return nil, errhandling.NewInvalidPredicateError(s.Field, "empty membership set")
	}

	kind := s.Values[0].kind
	for _, v := range s.Values[1:] {
		if v.kind != kind {
			return nil, errhandling.NewInvalidPredicateError(s.Field, "membership set mixes integer and string literals")
		}
	}

	switch {
	case kind == litInt && (col.Kind == table.KindInt || (col.Kind == table.KindString && col.Numeric)):
		set := make(map[int64]struct{}, len(s.Values))
		for _, v := range s.Values {
			set[v.i] = struct{}{}
		}
		ints := col.Ints
		return func(row int) bool {
			_, ok := set[ints[row]]
			return ok
		}, nil

	case kind == litString && col.Kind == table.KindString:
		set := make(map[string]struct{}, len(s.Values))
		for _, v := range s.Values {
			set[v.s] = struct{}{}
		}
		strs := col.Strs
		return func(row int) bool {
			_, ok := set[strs[row]]
			return ok
		}, nil

	default:
		return nil, errhandling.NewInvalidPredicateError(s.Field, fmt.Sprintf(
			"cannot test %s field for membership in %s set", col.Kind, s.Values[0]))
	}
}

// Apply evaluates the predicate conjoined with the year selector against
// every row and returns a new table holding the retained rows in their
// source order. The input table is not modified.
func Apply(t *table.Table, e Expr, years YearSelector) (*table.Table, error) {
	combined := Conjoin(years.Expr(), e)
	pred, err := Compile(combined, t)
	if err != nil {
		return nil, err
	}

	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if pred(i) {
			keep = append(keep, i)
		}
	}
	return t.Select(keep), nil
}

// cmpInt applies op to two integers.
func cmpInt(a, b int64, op Op) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	default:
		return a >= b
	}
}

// cmpStr applies op to two strings; ordering is lexicographic over the
// padded canonical form.
func cmpStr(a, b string, op Op) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	default:
		return a >= b
	}
}
