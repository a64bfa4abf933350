// Package predicate implements the filter engine. This file parses the
// structured predicate block of a job config (a nested map as produced by
// the YAML/JSON parser) into the tagged expression tree.
//
// Grammar, one key per node:
//
//	all: [node, ...]                    conjunction
//	any: [node, ...]                    disjunction
//	not: node                           negation
//	{field: F, op: OP, value: V}        comparison (op: eq ne lt le gt ge)
//	{field: F, in: [V, ...]}            set membership
package predicate

import (
	"fmt"
	"math"
)

// ParseConfig parses a structured predicate map into an expression tree.
// A nil map yields True (match everything).
func ParseConfig(m map[string]interface{}) (Expr, error) {
	if m == nil {
		return True{}, nil
	}
	return parseNode(m)
}

// parseNode dispatches on the node's distinguishing key.
func parseNode(m map[string]interface{}) (Expr, error) {
	if raw, ok := m["all"]; ok {
		return parseJunction(raw, "all")
	}
	if raw, ok := m["any"]; ok {
		return parseJunction(raw, "any")
	}
	if raw, ok := m["not"]; ok {
		inner, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("predicate: 'not' requires a nested predicate, got %T", raw)
		}
		e, err := parseNode(inner)
		if err != nil {
			return nil, err
		}
		return Not{Expr: e}, nil
	}
	if _, ok := m["field"]; ok {
		return parseLeaf(m)
	}
	return nil, fmt.Errorf("predicate: node must contain one of 'all', 'any', 'not', or 'field'")
}

// parseJunction parses an all/any list into a left-folded And/Or chain.
func parseJunction(raw interface{}, key string) (Expr, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("predicate: %q requires a list of predicates, got %T", key, raw)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("predicate: %q requires at least one predicate", key)
	}

	var out Expr
	for i, item := range items {
		node, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("predicate: %q item %d is not a predicate node", key, i)
		}
		e, err := parseNode(node)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = e
		} else if key == "all" {
			out = And{Left: out, Right: e}
		} else {
			out = Or{Left: out, Right: e}
		}
	}
	return out, nil
}

// parseLeaf parses a comparison or set-membership node.
func parseLeaf(m map[string]interface{}) (Expr, error) {
	field, ok := m["field"].(string)
	if !ok || field == "" {
		return nil, fmt.Errorf("predicate: 'field' must be a non-empty string")
	}

	if raw, ok := m["in"]; ok {
		items, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("predicate: field %q: 'in' requires a list of literals", field)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("predicate: field %q: 'in' requires at least one literal", field)
		}
		vals := make([]Literal, len(items))
		for i, item := range items {
			lit, err := parseLiteral(item)
			if err != nil {
				return nil, fmt.Errorf("predicate: field %q: %w", field, err)
			}
			vals[i] = lit
		}
		return InSet{Field: field, Values: vals}, nil
	}

	opName, ok := m["op"].(string)
	if !ok {
		return nil, fmt.Errorf("predicate: field %q: comparison requires 'op'", field)
	}
	op, err := parseOp(opName)
	if err != nil {
		return nil, fmt.Errorf("predicate: field %q: %w", field, err)
	}
	raw, ok := m["value"]
	if !ok {
		return nil, fmt.Errorf("predicate: field %q: comparison requires 'value'", field)
	}
	lit, err := parseLiteral(raw)
	if err != nil {
		return nil, fmt.Errorf("predicate: field %q: %w", field, err)
	}
	return Comparison{Field: field, Op: op, Value: lit}, nil
}

// parseOp maps config operator names to operators.
func parseOp(name string) (Op, error) {
	switch name {
	case "eq", "=", "==":
		return OpEq, nil
	case "ne", "!=":
		return OpNe, nil
	case "lt", "<":
		return OpLt, nil
	case "le", "<=":
		return OpLe, nil
	case "gt", ">":
		return OpGt, nil
	case "ge", ">=":
		return OpGe, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", name)
	}
}

// parseLiteral converts a parsed YAML/JSON scalar into a typed literal.
// JSON numbers arrive as float64; only integral values are accepted, since
// every numeric field in the layout is integer or fixed-point.
func parseLiteral(raw interface{}) (Literal, error) {
	switch v := raw.(type) {
	case string:
		return Str(v), nil
	case int:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return Literal{}, fmt.Errorf("literal %d overflows int64", v)
		}
		return Int(int64(v)), nil
	case float64:
		if v != math.Trunc(v) {
			return Literal{}, fmt.Errorf("literal %v is not an integer", v)
		}
		return Int(int64(v)), nil
	default:
		return Literal{}, fmt.Errorf("unsupported literal type %T", raw)
	}
}
