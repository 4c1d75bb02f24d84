package boolexpr

import (
	"reflect"
	"strings"

	"github.com/rendis/flowforge/pkg/schema"
)

// Evaluate walks a parsed expression against a variable context and returns
// the result (bool, float64, or string). Identifier and template lookups are
// strict: a missing variable or path yields UNBOUND_VARIABLE. Comparing
// operands that are not mutually ordered yields TYPE_MISMATCH.
func Evaluate(n Node, context map[string]any) (any, error) {
	switch v := n.(type) {
	case *Literal:
		return v.Value, nil

	case *Identifier:
		val, ok := context[v.Name]
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeUnboundVariable,
				"variable %q not found in context", v.Name)
		}
		return val, nil

	case *TemplateLiteral:
		return resolveTemplatePath(v.Path, context)

	case *BinaryExpr:
		left, err := Evaluate(v.Left, context)
		if err != nil {
			return nil, err
		}
		right, err := Evaluate(v.Right, context)
		if err != nil {
			return nil, err
		}
		return compare(v.Op, left, right)

	case *LogicalExpr:
		return evalLogical(v, context)

	case *ParenExpr:
		return Evaluate(v.Expr, context)

	default:
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "unknown AST node %T", n)
	}
}

// evalLogical applies short-circuit semantics: && returns false without
// touching the right side when the left is falsy; || returns true without
// touching the right side when the left is truthy. Otherwise the right
// side's value is the result.
func evalLogical(v *LogicalExpr, context map[string]any) (any, error) {
	left, err := Evaluate(v.Left, context)
	if err != nil {
		return nil, err
	}

	switch v.Op {
	case "&&":
		if !truthy(left) {
			return false, nil
		}
		return Evaluate(v.Right, context)
	case "||":
		if truthy(left) {
			return true, nil
		}
		return Evaluate(v.Right, context)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "unknown logical operator: %s", v.Op)
	}
}

// resolveTemplatePath walks a dot-delimited path through nested maps.
func resolveTemplatePath(path string, context map[string]any) (any, error) {
	parts := strings.Split(path, ".")
	var current any = context
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeUnboundVariable,
				"path %q not found in context: cannot access %q on non-object", path, part)
		}
		val, ok := m[part]
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeUnboundVariable,
				"path %q not found in context", path)
		}
		current = val
	}
	return current, nil
}

func compare(op string, left, right any) (any, error) {
	switch op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	}

	// Relational operators require mutually ordered operands.
	lf, lNum := asNumber(left)
	rf, rNum := asNumber(right)
	if lNum && rNum {
		switch op {
		case ">":
			return lf > rf, nil
		case "<":
			return lf < rf, nil
		case ">=":
			return lf >= rf, nil
		case "<=":
			return lf <= rf, nil
		}
	}

	ls, lStr := left.(string)
	rs, rStr := right.(string)
	if lStr && rStr {
		switch op {
		case ">":
			return ls > rs, nil
		case "<":
			return ls < rs, nil
		case ">=":
			return ls >= rs, nil
		case "<=":
			return ls <= rs, nil
		}
	}

	return nil, schema.NewErrorf(schema.ErrCodeTypeMismatch,
		"operator %q not supported between %T and %T", op, left, right)
}

// looseEqual compares values after numeric normalization; values of
// different, non-numeric types are simply not equal.
func looseEqual(left, right any) bool {
	lf, lNum := asNumber(left)
	rf, rNum := asNumber(right)
	if lNum && rNum {
		return lf == rf
	}
	if lNum != rNum {
		return false
	}
	return reflect.DeepEqual(left, right)
}

// asNumber normalizes any numeric type to float64. JSON decoding produces
// float64, but context maps built in Go code may carry int values.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}

// truthy mirrors the falsy set used by the branch semantics: false, zero,
// empty string, and nil are falsy; everything else is truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		if f, ok := asNumber(v); ok {
			return f != 0
		}
		return true
	}
}

// Truthy reports whether a value is truthy under the engine's branch
// semantics. Exposed for conditional node routing.
func Truthy(v any) bool {
	return truthy(v)
}
