package predicate

import (
	"errors"
	"strings"
	"testing"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/errhandling"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/schema"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/pkg/popdata"
)

func TestEngineNilConfig(t *testing.T) {
	tbl := popTable(t)
	e, err := NewEngine(nil, AllYears())
	if err != nil {
		t.Fatalf("NewEngine(nil) error = %v", err)
	}
	out, err := e.Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !tbl.Equal(out) {
		t.Error("nil config should be the identity filter")
	}
}

func TestEngineStructuredPredicate(t *testing.T) {
	tbl := popTable(t)
	cfg := &popdata.FilterConfig{
		Predicate: map[string]interface{}{"all": []interface{}{
			map[string]interface{}{"field": "Race_Code", "op": "eq", "value": 1},
			map[string]interface{}{"field": "Origin_Code", "op": "eq", "value": 0},
			map[string]interface{}{"field": "Sex_Code", "op": "eq", "value": 2},
			map[string]interface{}{"field": "Age", "op": "ge", "value": 50},
			map[string]interface{}{"field": "Age", "op": "le", "value": 75},
		}},
	}
	e, err := NewEngine(cfg, Years(2011))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	out, err := e.Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", out.NumRows())
	}
	pop, _ := out.Column(schema.FieldPopulation)
	if pop.Ints[0] != 412 {
		t.Errorf("Population = %d, want 412", pop.Ints[0])
	}
}

func TestEngineUnknownFieldFailsBeforeRows(t *testing.T) {
	tbl := popTable(t)
	cfg := &popdata.FilterConfig{
		Predicate: map[string]interface{}{"field": "Not_A_Field", "op": "eq", "value": 1},
	}
	e, err := NewEngine(cfg, AllYears())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	_, err = e.Apply(tbl)
	var ipe *errhandling.InvalidPredicateError
	if !errors.As(err, &ipe) {
		t.Fatalf("Apply() error = %v, want InvalidPredicateError", err)
	}
}

func TestEngineMalformedPredicate(t *testing.T) {
	cfg := &popdata.FilterConfig{
		Predicate: map[string]interface{}{"field": "Age", "op": "like", "value": 1},
	}
	if _, err := NewEngine(cfg, AllYears()); err == nil {
		t.Error("NewEngine() error = nil, want error for unknown operator")
	}
}

func TestEngineExprFilter(t *testing.T) {
	tbl := popTable(t)
	cfg := &popdata.FilterConfig{
		Expr: `Age >= 60 && State == "AL"`,
	}
	e, err := NewEngine(cfg, AllYears())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	out, err := e.Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	// Rows with Age >= 60 in AL: 2007/60, 2011/63 twice.
	if out.NumRows() != 3 {
		t.Errorf("NumRows() = %d, want 3", out.NumRows())
	}
}

func TestEngineExprCompileError(t *testing.T) {
	cfg := &popdata.FilterConfig{Expr: "Age >=&& 60"}
	if _, err := NewEngine(cfg, AllYears()); err == nil {
		t.Error("NewEngine() error = nil, want compile error")
	}
}

func TestEngineExprNonBoolean(t *testing.T) {
	tbl := popTable(t)
	cfg := &popdata.FilterConfig{Expr: "Age + 1"}
	e, err := NewEngine(cfg, AllYears())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	_, err = e.Apply(tbl)
	var ipe *errhandling.InvalidPredicateError
	if !errors.As(err, &ipe) {
		t.Fatalf("Apply() error = %v, want InvalidPredicateError", err)
	}
}

func TestEngineScriptFilter(t *testing.T) {
	tbl := popTable(t)
	cfg := &popdata.FilterConfig{
		Script: `function keep(record) { return record.Sex_Code === 2 && record.Age === 63; }`,
	}
	e, err := NewEngine(cfg, AllYears())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	out, err := e.Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	// Rows with Sex 2 and Age 63: 2011/AL and 2011/AZ.
	if out.NumRows() != 2 {
		t.Errorf("NumRows() = %d, want 2", out.NumRows())
	}
}

func TestEngineScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"syntax error", "function keep(record) {"},
		{"missing keep", "function filter(record) { return true; }"},
		{"too long", "// " + strings.Repeat("x", MaxScriptLength) + "\nfunction keep(r) { return true; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &popdata.FilterConfig{Script: tt.script}
			_, err := NewEngine(cfg, AllYears())
			var ipe *errhandling.InvalidPredicateError
			if !errors.As(err, &ipe) {
				t.Fatalf("NewEngine() error = %v, want InvalidPredicateError", err)
			}
		})
	}
}

func TestEngineScriptRuntimeError(t *testing.T) {
	tbl := popTable(t)
	cfg := &popdata.FilterConfig{
		Script: `function keep(record) { throw new Error("boom"); }`,
	}
	e, err := NewEngine(cfg, AllYears())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if _, err := e.Apply(tbl); err == nil {
		t.Error("Apply() error = nil, want script runtime error")
	}
}

func TestEngineConjoinsAllSurfaces(t *testing.T) {
	// Structured tree narrows to AL, expr narrows to Age >= 60, script
	// narrows to Sex 2; together with the 2011 selector only the target
	// row survives.
	tbl := popTable(t)
	cfg := &popdata.FilterConfig{
		Predicate: map[string]interface{}{"field": "State", "op": "eq", "value": "AL"},
		Expr:      "Age >= 60",
		Script:    "function keep(record) { return record.Sex_Code === 2; }",
	}
	e, err := NewEngine(cfg, Years(2011))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	out, err := e.Apply(tbl)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", out.NumRows())
	}
	pop, _ := out.Column(schema.FieldPopulation)
	if pop.Ints[0] != 412 {
		t.Errorf("Population = %d, want 412", pop.Ints[0])
	}
}
