package boolexpr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowforge/pkg/schema"
)

func TestParse_BasicLogical(t *testing.T) {
	ast, err := Parse("true && false")
	require.NoError(t, err)

	logical, ok := ast.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, "&&", logical.Op)
	assert.Equal(t, &Literal{Value: true}, logical.Left)
	assert.Equal(t, &Literal{Value: false}, logical.Right)
}

func TestParse_Comparison(t *testing.T) {
	ast, err := Parse("5 > 3")
	require.NoError(t, err)

	binary, ok := ast.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ">", binary.Op)
	assert.Equal(t, &Literal{Value: 5.0}, binary.Left)
	assert.Equal(t, &Literal{Value: 3.0}, binary.Right)
}

func TestParse_TemplateLiteral(t *testing.T) {
	ast, err := Parse("${user.age} > 18")
	require.NoError(t, err)

	binary, ok := ast.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, &TemplateLiteral{Path: "user.age"}, binary.Left)
	assert.Equal(t, &Literal{Value: 18.0}, binary.Right)
}

func TestParse_Identifier(t *testing.T) {
	ast, err := Parse("x > 5")
	require.NoError(t, err)

	binary, ok := ast.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, &Identifier{Name: "x"}, binary.Left)
}

func TestParse_StringLiterals(t *testing.T) {
	for _, expr := range []string{`"hello" == "hello"`, `'hello' == 'hello'`} {
		ast, err := Parse(expr)
		require.NoError(t, err, expr)

		binary, ok := ast.(*BinaryExpr)
		require.True(t, ok)
		assert.Equal(t, &Literal{Value: "hello"}, binary.Left)
		assert.Equal(t, &Literal{Value: "hello"}, binary.Right)
	}
}

func TestParse_Parenthesized(t *testing.T) {
	ast, err := Parse("(true && false) || true")
	require.NoError(t, err)

	outer, ok := ast.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, "||", outer.Op)

	paren, ok := outer.Left.(*ParenExpr)
	require.True(t, ok)
	inner, ok := paren.Expr.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, "&&", inner.Op)
}

func TestParse_MixedPrecedence(t *testing.T) {
	// Comparison binds tighter than logical.
	ast, err := Parse("x > 5 && y < 10")
	require.NoError(t, err)

	logical, ok := ast.(*LogicalExpr)
	require.True(t, ok)
	assert.IsType(t, &BinaryExpr{}, logical.Left)
	assert.IsType(t, &BinaryExpr{}, logical.Right)
}

func TestParse_NonChainingLeftAssociative(t *testing.T) {
	ast, err := Parse("a > b > c")
	require.NoError(t, err)

	outer, ok := ast.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ">", outer.Op)
	assert.Equal(t, &Identifier{Name: "c"}, outer.Right)

	inner, ok := outer.Left.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, &Identifier{Name: "a"}, inner.Left)
	assert.Equal(t, &Identifier{Name: "b"}, inner.Right)
}

func TestParse_FloatLiteral(t *testing.T) {
	ast, err := Parse("x >= 3.14")
	require.NoError(t, err)

	binary := ast.(*BinaryExpr)
	assert.Equal(t, &Literal{Value: 3.14}, binary.Right)
}

func TestParse_SyntaxErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"trailing operator", "true &&"},
		{"unclosed paren", "(true && false"},
		{"unclosed string", `"hello`},
		{"unclosed template", "${user.age > 18"},
		{"unexpected char", "x > 5 @"},
		{"dangling operand", "5 5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			require.Error(t, err)
			var flowErr *schema.FlowError
			require.True(t, errors.As(err, &flowErr))
			assert.Equal(t, schema.ErrCodeSyntax, flowErr.Code)
		})
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	exprs := []string{
		"true && false",
		"5 > 3",
		"${user.age} > 18",
		`"hello" == "hello"`,
		"(true && false) || true",
		"x > 5 && y < 10",
		"x != 3.5",
	}

	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			ast, err := Parse(expr)
			require.NoError(t, err)

			text := Serialize(ast)
			reparsed, err := Parse(text)
			require.NoError(t, err, "serialized form must re-parse: %q", text)
			assert.Equal(t, ast, reparsed)
		})
	}
}

func TestTokenize_TrueFalseAreKeywords(t *testing.T) {
	tokens, err := Tokenize("truthy true falsey false")
	require.NoError(t, err)

	kinds := make([]Kind, 0, len(tokens))
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []Kind{KindIdentifier, KindTrue, KindIdentifier, KindFalse, KindEOF}, kinds)
}
