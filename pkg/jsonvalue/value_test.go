package jsonvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type normalizeUser struct {
	Name string `json:"name"`
	Age  int    `json:"age,omitempty"`
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{"nil", nil, nil},
		{"int", 3, 3.0},
		{"uint8", uint8(7), 7.0},
		{"float32", float32(0.5), 0.5},
		{"json number", json.Number("12"), 12.0},
		{"string slice", []string{"a"}, []any{"a"}},
		{"typed slice", []int{1, 2}, []any{1.0, 2.0}},
		{"typed map", map[string]int{"a": 1}, map[string]any{"a": 1.0}},
		{"struct", normalizeUser{Name: "ekonoo"}, map[string]any{"name": "ekonoo"}},
		{"pointer", &normalizeUser{Name: "x", Age: 3}, map[string]any{"name": "x", "age": 3.0}},
		{"nested", map[string]any{"u": []any{int64(1), map[string]any{"x": 2}}},
			map[string]any{"u": []any{1.0, map[string]any{"x": 2.0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeRejectsUnsupported(t *testing.T) {
	_, err := Normalize(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"amount": 42, "tags": ["a"], "ok": null}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"amount": 42.0, "tags": []any{"a"}, "ok": nil}, v)
}

func TestDeepCopyIsIndependent(t *testing.T) {
	orig := map[string]any{"user": map[string]any{"name": "a"}, "tags": []any{"x"}}

	cp := DeepCopy(orig).(map[string]any)
	cp["user"].(map[string]any)["name"] = "b"
	cp["tags"].([]any)[0] = "y"

	assert.Equal(t, "a", orig["user"].(map[string]any)["name"])
	assert.Equal(t, "x", orig["tags"].([]any)[0])
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNull, KindOf(nil))
	assert.Equal(t, KindBoolean, KindOf(true))
	assert.Equal(t, KindNumber, KindOf(1.0))
	assert.Equal(t, KindString, KindOf("s"))
	assert.Equal(t, KindArray, KindOf([]any{}))
	assert.Equal(t, KindObject, KindOf(map[string]any{}))
	assert.Equal(t, "", KindOf(struct{}{}))
}

func TestIsInteger(t *testing.T) {
	assert.True(t, IsInteger(4.0))
	assert.False(t, IsInteger(4.5))
	assert.False(t, IsInteger("4"))
}
