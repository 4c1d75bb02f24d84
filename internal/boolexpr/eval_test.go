package boolexpr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowforge/pkg/schema"
)

func mustEval(t *testing.T, expr string, ctx map[string]any) any {
	t.Helper()
	ast, err := Parse(expr)
	require.NoError(t, err)
	result, err := Evaluate(ast, ctx)
	require.NoError(t, err)
	return result
}

func TestEvaluate_Logical(t *testing.T) {
	cases := []struct {
		expr string
		want any
	}{
		{"true && true", true},
		{"true && false", false},
		{"false && true", false},
		{"true || false", true},
		{"false || false", false},
		{"false || true", true},
		{"(true && false) || true", true},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			assert.Equal(t, tc.want, mustEval(t, tc.expr, nil))
		})
	}
}

func TestEvaluate_LogicalReturnsOperandValue(t *testing.T) {
	// && yields the right operand when the left is truthy, || yields true
	// when the left is truthy and the right operand otherwise.
	ctx := map[string]any{"n": 7.0, "empty": ""}

	assert.Equal(t, 7.0, mustEval(t, "true && n", ctx))
	assert.Equal(t, false, mustEval(t, "empty && n", ctx))
	assert.Equal(t, true, mustEval(t, "n || empty", ctx))
	assert.Equal(t, 7.0, mustEval(t, "empty || n", ctx))
}

func TestEvaluate_Comparisons(t *testing.T) {
	ctx := map[string]any{"x": 7.0, "y": 2.0, "name": "ada"}

	cases := []struct {
		expr string
		want bool
	}{
		{"x > 5", true},
		{"x < 5", false},
		{"x >= 7", true},
		{"y <= 2", true},
		{"x == 7", true},
		{"x != 7", false},
		{`name == "ada"`, true},
		{`name != "bob"`, true},
		{`"b" > "a"`, true},
		{"x > 5 && y < 10", true},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			assert.Equal(t, tc.want, mustEval(t, tc.expr, ctx))
		})
	}
}

func TestEvaluate_NumericNormalization(t *testing.T) {
	// Integers coming from decoded JSON or native maps compare equal to
	// parsed number literals.
	ctx := map[string]any{"count": 3}
	assert.Equal(t, true, mustEval(t, "count == 3", ctx))
	assert.Equal(t, true, mustEval(t, "count < 3.5", ctx))
}

func TestEvaluate_TemplatePaths(t *testing.T) {
	ctx := map[string]any{
		"user": map[string]any{"age": 21.0, "name": "ada"},
	}

	assert.Equal(t, true, mustEval(t, "${user.age} > 18", ctx))
	assert.Equal(t, true, mustEval(t, `${user.name} == "ada"`, ctx))
}

func TestEvaluate_UnboundVariable(t *testing.T) {
	for _, expr := range []string{"missing > 5", "${user.age} > 18"} {
		t.Run(expr, func(t *testing.T) {
			ast, err := Parse(expr)
			require.NoError(t, err)

			_, err = Evaluate(ast, map[string]any{})
			require.Error(t, err)
			var flowErr *schema.FlowError
			require.True(t, errors.As(err, &flowErr))
			assert.Equal(t, schema.ErrCodeUnboundVariable, flowErr.Code)
		})
	}
}

func TestEvaluate_ShortCircuitSkipsUnbound(t *testing.T) {
	// The right operand is never evaluated when the left decides the result.
	assert.Equal(t, false, mustEval(t, "false && missing", nil))
	assert.Equal(t, true, mustEval(t, "true || missing", nil))
}

func TestEvaluate_TypeMismatch(t *testing.T) {
	ast, err := Parse(`5 > "hello"`)
	require.NoError(t, err)

	_, err = Evaluate(ast, nil)
	require.Error(t, err)
	var flowErr *schema.FlowError
	require.True(t, errors.As(err, &flowErr))
	assert.Equal(t, schema.ErrCodeTypeMismatch, flowErr.Code)
}

func TestEvaluate_EqualityAcrossTypes(t *testing.T) {
	// Equality never raises on mixed types, it just reports false.
	assert.Equal(t, false, mustEval(t, `5 == "5"`, nil))
	assert.Equal(t, true, mustEval(t, `5 != "5"`, nil))
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"zero", 0.0, false},
		{"nonzero", 1.5, true},
		{"empty string", "", false},
		{"string", "x", true},
		{"map", map[string]any{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Truthy(tc.value))
		})
	}
}
