package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molder/pkg/rules"
)

// TestTransformWrapsStringField tests the transform-then-validate composite.
func TestTransformWrapsStringField(t *testing.T) {
	reg := rules.NewRegistry()
	reg.Model("Account").Field("name", rules.String,
		rules.Required(), rules.Trim(), rules.Min(1), rules.ToLowerCase(), rules.Default("x"))

	s := NewCompiler(reg).Compile("Account")
	name, _ := s.Properties.Get("name")

	require.Len(t, name.AllOf, 2)
	assert.Equal(t, []string{"trim", "toLowerCase"}, name.AllOf[0].Transform)
	assert.Equal(t, TypeSet{"string"}, name.AllOf[1].Type)
	assert.Equal(t, 1, *name.AllOf[1].MinLength)
	assert.Empty(t, name.Type, "the wrapper itself has no type")
	assert.True(t, name.HasDefault, "defaults stay on the property schema")
	assert.Equal(t, "x", name.Default)
	assert.False(t, name.AllOf[1].HasDefault)
}

// TestTransformWrapsStringItems tests that only array items are wrapped.
func TestTransformWrapsStringItems(t *testing.T) {
	reg := rules.NewRegistry()
	reg.Model("Account").Field("names", rules.Array,
		rules.ToUpperCase(), rules.Item(rules.String), rules.Min(1))

	s := NewCompiler(reg).Compile("Account")
	names, _ := s.Properties.Get("names")

	assert.Equal(t, TypeSet{"array"}, names.Type)
	assert.Equal(t, 1, *names.MinItems)
	require.Len(t, names.Items.AllOf, 2)
	assert.Equal(t, []string{"toUpperCase"}, names.Items.AllOf[0].Transform)
	assert.Equal(t, &Schema{Type: TypeSet{"string"}}, names.Items.AllOf[1])
}

// TestTransformInertElsewhere tests transforms on fields they cannot apply to.
func TestTransformInertElsewhere(t *testing.T) {
	reg := rules.NewRegistry()
	reg.Model("Num").Field("id", rules.String)
	reg.Model("Account").
		Field("names", rules.Array, rules.Trim()).
		Field("numbers", rules.Array, rules.Trim(), rules.Item(rules.Number)).
		Field("amount", rules.Number, rules.Trim()).
		Field("maybe", rules.String, rules.Trim(), rules.Nullable(rules.String)).
		Field("nested", rules.Ref("Num"), rules.ToLowerCase())

	s := NewCompiler(reg).Compile("Account")

	names, _ := s.Properties.Get("names")
	assert.Equal(t, &Schema{Type: TypeSet{"array"}}, names)

	numbers, _ := s.Properties.Get("numbers")
	assert.Equal(t, &Schema{Type: TypeSet{"array"}, Items: &Schema{Type: TypeSet{"number"}}}, numbers)

	amount, _ := s.Properties.Get("amount")
	assert.Equal(t, &Schema{Type: TypeSet{"number"}}, amount)

	maybe, _ := s.Properties.Get("maybe")
	assert.Equal(t, &Schema{Type: TypeSet{"null", "string"}}, maybe)

	nested, _ := s.Properties.Get("nested")
	assert.Equal(t, "Num", nested.Title)
	assert.Nil(t, nested.AllOf)
}
