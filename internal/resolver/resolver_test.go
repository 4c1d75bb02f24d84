package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver() *Resolver {
	contextData := map[string]any{
		"user": map[string]any{
			"name":        "admin",
			"permissions": []any{"read", "write"},
		},
		"settings": map[string]any{
			"timeout": 30.0,
			"1":       []any{1.0, 2.0, 3.0},
		},
	}
	inputData := map[string]any{
		"request": map[string]any{
			"params": map[string]any{
				"id":      12345.0,
				"filters": []any{map[string]any{"type": "date", "value": "2023-01-01"}},
			},
		},
	}
	globalData := map[string]any{"runMode": "test"}
	return New(contextData, inputData, globalData)
}

func TestResolve_Substitution(t *testing.T) {
	r := testResolver()

	cases := []struct {
		name string
		expr string
		want string
	}{
		{"context path", "${context.user.name}", "admin"},
		{"integral number", "${context.settings.timeout}", "30"},
		{"input path", "${input.request.params.id}", "12345"},
		{"array of maps", "${input.request.params.filters[0].type}", "date"},
		{"array index", "${context.user.permissions[1]}", "write"},
		{"numeric key then index", "${context.settings.1[2]}", "3"},
		{"global scope", "${global.runMode}", "test"},
		{"no scope prefix defaults to context", "${user.name}", "admin"},
		{"mixed text", "User: ${context.user.name}, ID: ${input.request.params.id}", "User: admin, ID: 12345"},
		{"unresolved stays literal", "${context.not.exist}", "${context.not.exist}"},
		{"partial resolution", "${context.settings.1[1]} > ${result}", "2 > ${result}"},
		{"out of range index", "${context.user.permissions[9]}", "${context.user.permissions[9]}"},
		{"index into non-sequence", "${context.user.name[0]}", "${context.user.name[0]}"},
		{"plain text untouched", "no placeholders here", "no placeholders here"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Resolve(tc.expr))
		})
	}
}

func TestResolve_NonStringPassThrough(t *testing.T) {
	r := testResolver()

	assert.Equal(t, 42.0, r.Resolve(42.0))
	assert.Equal(t, true, r.Resolve(true))
	assert.Nil(t, r.Resolve(nil))

	value := map[string]any{"k": "v"}
	assert.Equal(t, value, r.Resolve(value))
}

func TestResolve_CompositeValueRendersAsJSON(t *testing.T) {
	r := testResolver()
	assert.Equal(t, `["read","write"]`, r.Resolve("${context.user.permissions}"))
}

func TestLookup_WholeInput(t *testing.T) {
	input := map[string]any{"a": 1.0}
	r := New(nil, input, nil)

	value, ok := r.Lookup("input")
	require.True(t, ok)
	assert.Equal(t, input, value)
}

func TestLookup_TypedValues(t *testing.T) {
	r := New(map[string]any{"a": map[string]any{"b": []any{10.0, 20.0, 30.0}}}, nil, nil)

	value, ok := r.Lookup("context.a.b[1]")
	require.True(t, ok)
	assert.Equal(t, 20.0, value)

	_, ok = r.Lookup("context.a.missing")
	assert.False(t, ok)
}

func TestResolve_LenientPolicy(t *testing.T) {
	r := New(map[string]any{"a": map[string]any{"b": []any{10.0, 20.0, 30.0}}}, nil, nil)
	assert.Equal(t, "20", r.Resolve("${context.a.b[1]}"))

	empty := New(nil, nil, nil)
	assert.Equal(t, "${missing.x}", empty.Resolve("${missing.x}"))
}
