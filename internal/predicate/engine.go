// Package predicate implements the filter engine. This file assembles a
// job's full filter from its config: the structured predicate tree, the
// implicit year selector, and the optional expr-lang and JavaScript
// surface predicates. All supplied predicates are conjoined; a row is
// retained only if every one holds.
package predicate

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/errhandling"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/internal/table"
	"github.com/multicancerrisk/parse-seer-us-population-estimates/pkg/popdata"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB).
const MaxScriptLength = 100 * 1024

// keepFuncName is the function a filter script must define.
const keepFuncName = "keep"

// Engine evaluates a job's complete filter against a table.
//
// The goja runtime is not goroutine-safe; an Engine must not be used from
// multiple goroutines concurrently. Row evaluation is single-threaded.
type Engine struct {
	tree  Expr
	years YearSelector

	exprSrc  string
	exprProg *vm.Program

	scriptRT *goja.Runtime
	keepFn   goja.Callable
}

// NewEngine builds a filter engine from a job's filter config and year
// selector. Structured predicate parsing, expr compilation, and script
// compilation all happen here, so a malformed filter fails before any data
// is acquired. A nil config yields the identity filter.
func NewEngine(cfg *popdata.FilterConfig, years YearSelector) (*Engine, error) {
	e := &Engine{tree: True{}, years: years}
	if cfg == nil {
		return e, nil
	}

	tree, err := ParseConfig(cfg.Predicate)
	if err != nil {
		return nil, err
	}
	e.tree = tree

	if strings.TrimSpace(cfg.Expr) != "" {
		// AllowUndefinedVariables is deliberately absent: a misspelled
		// field name should fail, not evaluate to nil.
		prog, err := expr.Compile(cfg.Expr)
		if err != nil {
			return nil, errhandling.NewInvalidPredicateError("", fmt.Sprintf("invalid expr filter: %v", err))
		}
		e.exprSrc = cfg.Expr
		e.exprProg = prog
	}

	if strings.TrimSpace(cfg.Script) != "" {
		if err := e.compileScript(cfg.Script); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// compileScript compiles the JavaScript filter and resolves its keep
// function. Goja provides sandboxed execution: scripts have no file system
// or network access.
func (e *Engine) compileScript(src string) error {
	if len(src) > MaxScriptLength {
		return errhandling.NewInvalidPredicateError("", fmt.Sprintf(
			"script exceeds maximum length of %d bytes", MaxScriptLength))
	}

	rt := goja.New()
	if _, err := rt.RunString(src); err != nil {
		return errhandling.NewInvalidPredicateError("", fmt.Sprintf("script compilation failed: %v", err))
	}
	fn, ok := goja.AssertFunction(rt.Get(keepFuncName))
	if !ok {
		return errhandling.NewInvalidPredicateError("", fmt.Sprintf(
			"script must define a %s(record) function", keepFuncName))
	}
	e.scriptRT = rt
	e.keepFn = fn
	return nil
}

// Apply runs the engine against a table and returns the reduced table.
// The structured predicate and year selector are evaluated first over the
// column storage; the expr and script predicates then run per row over a
// map view of the survivors. The input table is never modified.
func (e *Engine) Apply(t *table.Table) (*table.Table, error) {
	out, err := Apply(t, e.tree, e.years)
	if err != nil {
		return nil, err
	}

	if e.exprProg != nil {
		out, err = e.applyExpr(out)
		if err != nil {
			return nil, err
		}
	}
	if e.keepFn != nil {
		out, err = e.applyScript(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// applyExpr evaluates the compiled expr program per row.
func (e *Engine) applyExpr(t *table.Table) (*table.Table, error) {
	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		out, err := expr.Run(e.exprProg, t.RowMap(i))
		if err != nil {
			return nil, fmt.Errorf("expr filter failed at row %d: %w", i, err)
		}
		ok, isBool := out.(bool)
		if !isBool {
			return nil, errhandling.NewInvalidPredicateError("", fmt.Sprintf(
				"expr filter %q must evaluate to a boolean, got %T", e.exprSrc, out))
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return t.Select(keep), nil
}

// applyScript calls the script's keep(record) function per row. The
// result is taken by JavaScript truthiness, matching what script authors
// expect from the language.
func (e *Engine) applyScript(t *table.Table) (*table.Table, error) {
	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		res, err := e.keepFn(goja.Undefined(), e.scriptRT.ToValue(t.RowMap(i)))
		if err != nil {
			return nil, fmt.Errorf("script filter failed at row %d: %w", i, err)
		}
		if res.ToBoolean() {
			keep = append(keep, i)
		}
	}
	return t.Select(keep), nil
}
