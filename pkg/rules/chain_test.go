package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountChain() *Registry {
	reg := NewRegistry()
	reg.Model("Account").
		Field("amount", Number, Max(11), Default(2)).
		Field("name", String, Min(0)).
		Field("foo", String, Enum("a", "b"), Default("a"))
	reg.Model("SubAccount").
		ExtendRules("Account").
		Field("type", String, Default("credit")).
		Field("amount", Number, Max(20))
	reg.Model("SubAccountBis").
		ExtendRules("SubAccount").
		Field("data", String, Required())
	return reg
}

// TestChain tests that the chain lists nearest ancestors first.
func TestChain(t *testing.T) {
	reg := accountChain()

	assert.Equal(t, []string{"SubAccountBis", "SubAccount", "Account"}, reg.Chain("SubAccountBis"))
	assert.Equal(t, []string{"Account"}, reg.Chain("Account"))
	assert.Equal(t, []string{"Unknown"}, reg.Chain("Unknown"))
	assert.Equal(t, "SubAccount", reg.Parent("SubAccountBis"))
}

// TestRuleValueNearestWins tests per-kind override through the chain.
func TestRuleValueNearestWins(t *testing.T) {
	reg := accountChain()

	v, _ := reg.RuleValue("SubAccountBis", "amount", KindMax)
	assert.Equal(t, 20.0, v, "SubAccount overrides Account")

	v, _ = reg.RuleValue("SubAccountBis", "amount", KindDefault)
	assert.Equal(t, 2.0, v, "kinds not overridden are inherited")

	_, ok := reg.RuleValue("Account", "type", KindDefault)
	assert.False(t, ok, "children never leak into parents")
}

// TestResolveFieldOrderAndMerge tests the merged view used by the compiler.
func TestResolveFieldOrderAndMerge(t *testing.T) {
	reg := accountChain()

	fields := reg.Resolve("SubAccountBis")
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"data", "type", "amount", "name", "foo"}, names)

	amount := fields[2]
	assert.Equal(t, []Kind{KindType, KindMax, KindDefault}, amount.Kinds)
	v, _ := amount.Get(KindMax)
	assert.Equal(t, 20.0, v)
	typ, ok := amount.Type()
	require.True(t, ok)
	assert.Equal(t, Number, typ)

	assert.True(t, fields[0].Required)
	assert.False(t, fields[1].Required)
}

// TestRequiredCollectedAcrossChain tests that any REQUIRED in the chain marks the field.
func TestRequiredCollectedAcrossChain(t *testing.T) {
	reg := NewRegistry()
	reg.Model("Base").Field("id", String, Required())
	reg.Model("Child").ExtendRules("Base").Field("id", String, Pattern("^[a-z]+$"))

	v, ok := reg.RuleValue("Child", "id", KindRequired)
	require.True(t, ok)
	assert.Equal(t, true, v)

	fields := reg.Resolve("Child")
	require.Len(t, fields, 1)
	assert.True(t, fields[0].Required)
}

// TestExtendCyclePanics tests that closing an extends cycle fails at registration.
func TestExtendCyclePanics(t *testing.T) {
	reg := NewRegistry()
	reg.Model("A").ExtendRules("B")
	reg.Model("B").ExtendRules("C")

	var err error
	func() {
		defer CatchAnomaly(&err)
		reg.Model("C").ExtendRules("A")
	}()
	require.Error(t, err)
	assert.True(t, IsCompilationAnomaly(err))
	assert.Contains(t, err.Error(), "extends cycle")

	assert.Panics(t, func() { reg.Model("D").ExtendRules("D") })
}

// TestCatchAnomalyPropagatesOtherPanics tests that unrelated panics are not swallowed.
func TestCatchAnomalyPropagatesOtherPanics(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		var err error
		defer CatchAnomaly(&err)
		panic("boom")
	})
}

// TestIsCompilationAnomalyWrapped tests detection through wrapping.
func TestIsCompilationAnomalyWrapped(t *testing.T) {
	err := Anomaly("Account", "name", KindPattern, "does not apply to %s", "number")
	wrapped := errors.Join(errors.New("compile"), err)

	assert.True(t, IsCompilationAnomaly(wrapped))
	assert.False(t, IsCompilationAnomaly(errors.New("other")))
	assert.Equal(t, "compilation anomaly in Account.name (pattern): does not apply to number", err.Error())
}
