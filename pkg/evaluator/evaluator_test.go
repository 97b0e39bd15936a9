package evaluator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/schema"
)

func mustSchema(t *testing.T, doc string) *schema.Schema {
	t.Helper()
	s := &schema.Schema{}
	require.NoError(t, json.Unmarshal([]byte(doc), s))
	return s
}

// evaluate decodes input, evaluates it and returns the output with the
// rendered violations.
func evaluate(t *testing.T, s *schema.Schema, input string, opts Options) (any, []string) {
	t.Helper()
	v, err := jsonvalue.Decode([]byte(input))
	require.NoError(t, err)

	out, vs := Evaluate(s, v, opts)
	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		msgs = append(msgs, v.String())
	}
	return out, msgs
}

// TestEvaluateNoViolations tests that a valid value yields an empty, non-nil list.
func TestEvaluateNoViolations(t *testing.T) {
	out, vs := Evaluate(mustSchema(t, `{"type":"string"}`), "ok", DefaultOptions())
	assert.Equal(t, "ok", out)
	assert.NotNil(t, vs)
	assert.Empty(t, vs)
}

// TestEvaluateCoercion tests scalar coercion to the schema type.
func TestEvaluateCoercion(t *testing.T) {
	tests := []struct {
		name     string
		schema   string
		input    string
		want     any
		wantErrs []string
	}{
		{name: "string to boolean", schema: `{"type":"boolean"}`, input: `"true"`, want: true},
		{name: "false string to boolean", schema: `{"type":"boolean"}`, input: `"false"`, want: false},
		{name: "number to string", schema: `{"type":"string"}`, input: `32`, want: "32"},
		{name: "fraction to string", schema: `{"type":"string"}`, input: `1.5`, want: "1.5"},
		{name: "boolean to string", schema: `{"type":"string"}`, input: `true`, want: "true"},
		{name: "null to string", schema: `{"type":"string"}`, input: `null`, want: ""},
		{name: "padded numeric string", schema: `{"type":"number"}`, input: `" 12 "`, want: 12.0},
		{name: "exponent string", schema: `{"type":"number"}`, input: `"1e3"`, want: 1000.0},
		{name: "boolean to number", schema: `{"type":"number"}`, input: `true`, want: 1.0},
		{name: "null to number", schema: `{"type":"number"}`, input: `null`, want: 0.0},
		{name: "empty string to null", schema: `{"type":["null","number"]}`, input: `""`, want: nil},
		{name: "zero to null", schema: `{"type":"null"}`, input: `0`, want: nil},
		{
			name: "empty string is not a number", schema: `{"type":"number"}`, input: `""`,
			want: "", wantErrs: []string{"data should be number"},
		},
		{
			name: "hex is not a number", schema: `{"type":"number"}`, input: `"0x10"`,
			want: "0x10", wantErrs: []string{"data should be number"},
		},
		{
			name: "infinity is not a number", schema: `{"type":"number"}`, input: `"Infinity"`,
			want: "Infinity", wantErrs: []string{"data should be number"},
		},
		{
			name: "fraction is not an integer", schema: `{"type":"integer"}`, input: `"1.5"`,
			want: "1.5", wantErrs: []string{"data should be integer"},
		},
		{
			name: "arrays are not coerced", schema: `{"type":"number"}`, input: `[1]`,
			want: []any{1.0}, wantErrs: []string{"data should be number"},
		},
		{
			name: "type list message", schema: `{"type":["null","number"]}`, input: `"x"`,
			want: "x", wantErrs: []string{"data should be null,number"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errs := evaluate(t, mustSchema(t, tt.schema), tt.input, DefaultOptions())
			assert.Equal(t, tt.want, out)
			if tt.wantErrs == nil {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, tt.wantErrs, errs)
			}
		})
	}
}

// TestEvaluateCoercionDisabled tests that mismatches are reported as is.
func TestEvaluateCoercionDisabled(t *testing.T) {
	out, errs := evaluate(t, mustSchema(t, `{"type":"boolean"}`), `"true"`, Options{})
	assert.Equal(t, "true", out)
	assert.Equal(t, []string{"data should be boolean"}, errs)
}

// TestEvaluateDefaults tests that defaults fill absent keys before required runs.
func TestEvaluateDefaults(t *testing.T) {
	s := mustSchema(t, `{
		"type": "object",
		"properties": {
			"amount": {"type": "number", "maximum": 11, "default": 2},
			"tags": {"type": "array", "default": ["a"]}
		},
		"required": ["amount"]
	}`)

	t.Run("absent keys", func(t *testing.T) {
		out, errs := evaluate(t, s, `{}`, DefaultOptions())
		assert.Empty(t, errs)
		assert.Equal(t, map[string]any{"amount": 2.0, "tags": []any{"a"}}, out)
	})

	t.Run("present invalid value stays", func(t *testing.T) {
		out, errs := evaluate(t, s, `{"amount": 42}`, DefaultOptions())
		assert.Equal(t, []string{"data/amount should be <= 11"}, errs)
		assert.Equal(t, 42.0, out.(map[string]any)["amount"])
	})

	t.Run("defaults are copied", func(t *testing.T) {
		first, _ := evaluate(t, s, `{}`, DefaultOptions())
		first.(map[string]any)["tags"].([]any)[0] = "changed"

		second, _ := evaluate(t, s, `{}`, DefaultOptions())
		assert.Equal(t, []any{"a"}, second.(map[string]any)["tags"])
	})

	t.Run("disabled", func(t *testing.T) {
		out, errs := evaluate(t, s, `{}`, Options{})
		assert.Equal(t, []string{"data should have required property 'amount'"}, errs)
		assert.Equal(t, map[string]any{}, out)
	})
}

// TestEvaluateRequired tests required ordering and nested paths.
func TestEvaluateRequired(t *testing.T) {
	s := mustSchema(t, `{
		"type": "object",
		"properties": {
			"amount": {"type": "number"},
			"user": {
				"type": "object",
				"properties": {"name": {"type": "string"}, "age": {"type": "number"}},
				"required": ["name", "age"]
			}
		},
		"required": ["amount", "user"]
	}`)

	_, errs := evaluate(t, s, `{}`, DefaultOptions())
	assert.Equal(t, []string{
		"data should have required property 'amount'",
		"data should have required property 'user'",
	}, errs)

	_, errs = evaluate(t, s, `{"amount": 1, "user": {"name": "x"}}`, DefaultOptions())
	assert.Equal(t, []string{"data/user should have required property 'age'"}, errs)
}

// TestEvaluateAdditionalProperties tests stripping, reporting and schema-valued extras.
func TestEvaluateAdditionalProperties(t *testing.T) {
	closed := mustSchema(t, `{"type":"object","properties":{"a":{}},"additionalProperties":false}`)

	t.Run("removed", func(t *testing.T) {
		out, errs := evaluate(t, closed, `{"a": 1, "b": 2}`, DefaultOptions())
		assert.Empty(t, errs)
		assert.Equal(t, map[string]any{"a": 1.0}, out)
	})

	t.Run("reported", func(t *testing.T) {
		opts := DefaultOptions()
		opts.RemoveAdditional = false
		v, err := jsonvalue.Decode([]byte(`{"a": 1, "b": 2}`))
		require.NoError(t, err)

		_, vs := Evaluate(closed, v, opts)
		require.Len(t, vs, 1)
		assert.Equal(t, "additionalProperties", vs[0].Keyword)
		assert.Equal(t, "b", vs[0].Params["additionalProperty"])
		assert.Equal(t, "data should NOT have additional properties", vs[0].String())
	})

	t.Run("open", func(t *testing.T) {
		open := mustSchema(t, `{"type":"object","properties":{"a":{}},"additionalProperties":true}`)
		out, errs := evaluate(t, open, `{"a": 1, "b": 2}`, DefaultOptions())
		assert.Empty(t, errs)
		assert.Equal(t, map[string]any{"a": 1.0, "b": 2.0}, out)
	})

	t.Run("schema valued", func(t *testing.T) {
		record := mustSchema(t, `{"type":"object","additionalProperties":{"type":"string"}}`)
		out, errs := evaluate(t, record, `{"z": [], "b": 3, "a": {}}`, DefaultOptions())
		assert.Equal(t, []string{"data/a should be string", "data/z should be string"}, errs)
		assert.Equal(t, "3", out.(map[string]any)["b"])
	})
}

// TestEvaluateNumberKeywords tests minimum and maximum messages.
func TestEvaluateNumberKeywords(t *testing.T) {
	s := mustSchema(t, `{"type":"number","minimum":1.5,"maximum":11}`)

	_, errs := evaluate(t, s, `42`, DefaultOptions())
	assert.Equal(t, []string{"data should be <= 11"}, errs)

	_, errs = evaluate(t, s, `0`, DefaultOptions())
	assert.Equal(t, []string{"data should be >= 1.5"}, errs)

	_, errs = evaluate(t, s, `"5"`, DefaultOptions())
	assert.Empty(t, errs)
}

// TestEvaluateStringKeywords tests length and pattern checks.
func TestEvaluateStringKeywords(t *testing.T) {
	tests := []struct {
		name    string
		schema  string
		input   string
		wantErr string
	}{
		{name: "too short", schema: `{"type":"string","minLength":2}`, input: `"a"`, wantErr: "data should NOT be shorter than 2 characters"},
		{name: "too long", schema: `{"type":"string","maxLength":1}`, input: `"ab"`, wantErr: "data should NOT be longer than 1 characters"},
		{name: "code points", schema: `{"type":"string","maxLength":1}`, input: `"é"`},
		{name: "pattern mismatch", schema: `{"type":"string","pattern":"^a"}`, input: `"b"`, wantErr: `data should match pattern "^a"`},
		{name: "pattern match", schema: `{"type":"string","pattern":"^a"}`, input: `"abc"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := evaluate(t, mustSchema(t, tt.schema), tt.input, DefaultOptions())
			if tt.wantErr == "" {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, []string{tt.wantErr}, errs)
			}
		})
	}
}

// TestEvaluateArrayKeywords tests item limits and per-item evaluation.
func TestEvaluateArrayKeywords(t *testing.T) {
	s := mustSchema(t, `{"type":"array","maxItems":2,"items":{"type":"string"}}`)

	out, errs := evaluate(t, s, `[1, true]`, DefaultOptions())
	assert.Empty(t, errs)
	assert.Equal(t, []any{"1", "true"}, out)

	_, errs = evaluate(t, s, `["a", [], "c"]`, DefaultOptions())
	assert.Equal(t, []string{
		"data should NOT have more than 2 items",
		"data/1 should be string",
	}, errs)

	_, errs = evaluate(t, mustSchema(t, `{"type":"array","minItems":1}`), `[]`, DefaultOptions())
	assert.Equal(t, []string{"data should NOT have fewer than 1 items"}, errs)
}

// TestEvaluateEnumAndNot tests enum membership and negation.
func TestEvaluateEnumAndNot(t *testing.T) {
	enum := mustSchema(t, `{"type":"string","enum":["1","b"]}`)

	_, errs := evaluate(t, enum, `"c"`, DefaultOptions())
	assert.Equal(t, []string{"data should be equal to one of the allowed values"}, errs)

	out, errs := evaluate(t, enum, `1`, DefaultOptions())
	assert.Empty(t, errs)
	assert.Equal(t, "1", out)

	nullable := mustSchema(t, `{"type":["null","string"],"enum":["a",null]}`)
	_, errs = evaluate(t, nullable, `null`, DefaultOptions())
	assert.Empty(t, errs)

	not := mustSchema(t, `{"not":{"type":"string"}}`)
	_, errs = evaluate(t, not, `"x"`, DefaultOptions())
	assert.Equal(t, []string{"data should NOT be valid"}, errs)

	_, errs = evaluate(t, not, `[]`, DefaultOptions())
	assert.Empty(t, errs)
}

// TestEvaluateAnyOf tests that the first passing branch is adopted.
func TestEvaluateAnyOf(t *testing.T) {
	s := mustSchema(t, `{"anyOf":[{"type":"number"},{"type":"string"}]}`)

	out, errs := evaluate(t, s, `"x"`, DefaultOptions())
	assert.Empty(t, errs)
	assert.Equal(t, "x", out)

	out, errs = evaluate(t, s, `true`, DefaultOptions())
	assert.Empty(t, errs)
	assert.Equal(t, 1.0, out)

	bounded := mustSchema(t, `{"anyOf":[{"type":"number","maximum":1},{"type":"number","minimum":5}]}`)
	_, errs = evaluate(t, bounded, `3`, DefaultOptions())
	assert.Equal(t, []string{
		"data should be <= 1",
		"data should be >= 5",
		"data should match some schema in anyOf",
	}, errs)
}

// TestEvaluateOneOf tests exclusive branch matching.
func TestEvaluateOneOf(t *testing.T) {
	s := mustSchema(t, `{"oneOf":[{"type":"number"},{"type":"string"}]}`)

	out, errs := evaluate(t, s, `"x"`, DefaultOptions())
	assert.Empty(t, errs)
	assert.Equal(t, "x", out)

	t.Run("several branches pass", func(t *testing.T) {
		// 1 is a number and coerces to the string "1".
		_, vs := Evaluate(s, 1.0, DefaultOptions())
		require.Len(t, vs, 1)
		assert.Equal(t, "data should match exactly one schema in oneOf", vs[0].String())
		assert.Equal(t, []any{0.0, 1.0}, vs[0].Params["passingSchemas"])
	})

	t.Run("no branch passes", func(t *testing.T) {
		_, errs := evaluate(t, s, `{}`, DefaultOptions())
		assert.Equal(t, []string{
			"data should be number",
			"data should be string",
			"data should match exactly one schema in oneOf",
		}, errs)
	})
}

// TestEvaluateUnionEnvelope tests that unknown keys are stripped by the
// envelope and the passing member's coercions are kept.
func TestEvaluateUnionEnvelope(t *testing.T) {
	s := mustSchema(t, `{
		"type": "object",
		"properties": {"meow": {}, "bark": {}},
		"additionalProperties": false,
		"oneOf": [
			{"type":"object","properties":{"meow":{"type":"boolean"}},"required":["meow"],"additionalProperties":true},
			{"type":"object","properties":{"bark":{"type":"boolean"}},"required":["bark"],"additionalProperties":true}
		]
	}`)

	out, errs := evaluate(t, s, `{"meow": "true", "junk": 1}`, DefaultOptions())
	assert.Empty(t, errs)
	assert.Equal(t, map[string]any{"meow": true}, out)
}

// TestEvaluateTransform tests the transform keyword inside an allOf wrapper.
func TestEvaluateTransform(t *testing.T) {
	s := mustSchema(t, `{"allOf":[{"transform":["trim","toLowerCase"]},{"type":"string","minLength":1}]}`)

	out, errs := evaluate(t, s, `"  HeLLo "`, DefaultOptions())
	assert.Empty(t, errs)
	assert.Equal(t, "hello", out)

	out, errs = evaluate(t, s, `"   "`, DefaultOptions())
	assert.Equal(t, []string{"data should NOT be shorter than 1 characters"}, errs)
	assert.Equal(t, "", out)

	items := mustSchema(t, `{"type":"array","items":{"allOf":[{"transform":["toUpperCase"]},{"type":"string"}]}}`)
	out, errs = evaluate(t, items, `["straße", "ok"]`, DefaultOptions())
	assert.Empty(t, errs)
	assert.Equal(t, []any{"STRASSE", "OK"}, out)
}

// TestApplyTransforms tests each transform name.
func TestApplyTransforms(t *testing.T) {
	tests := []struct {
		names []string
		in    string
		want  string
	}{
		{names: []string{"trim"}, in: " \t a b \n", want: "a b"},
		{names: []string{"trimStart"}, in: "  a ", want: "a "},
		{names: []string{"trimLeft"}, in: "  a ", want: "a "},
		{names: []string{"trimEnd"}, in: "  a ", want: "  a"},
		{names: []string{"trimRight"}, in: "  a ", want: "  a"},
		{names: []string{"toLowerCase"}, in: "ÉCOLE", want: "école"},
		{names: []string{"toUpperCase"}, in: "école", want: "ÉCOLE"},
		{names: []string{"toUpperCase", "trim"}, in: " a ", want: "A"},
		{names: []string{"unknown"}, in: " a ", want: " a "},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, applyTransforms(tt.in, tt.names), "%v(%q)", tt.names, tt.in)
	}
}

// TestEvaluateErrorMessage tests property and general custom messages.
func TestEvaluateErrorMessage(t *testing.T) {
	user := `{
		"type": "object",
		"properties": {"name": {"type": "string", "minLength": 2}},
		"required": ["name"],
		"errorMessage": {"properties": {"name": "votre nom doit être une chaine valide"}}
	}`

	t.Run("property replaced", func(t *testing.T) {
		v, err := jsonvalue.Decode([]byte(`{"name": "a"}`))
		require.NoError(t, err)

		_, vs := Evaluate(mustSchema(t, user), v, DefaultOptions())
		require.Len(t, vs, 1)
		assert.Equal(t, "errorMessage", vs[0].Keyword)
		assert.Equal(t, "data/name votre nom doit être une chaine valide", vs[0].String())
		assert.Len(t, vs[0].Params["errors"], 1)
	})

	t.Run("required kept", func(t *testing.T) {
		_, errs := evaluate(t, mustSchema(t, user), `{}`, DefaultOptions())
		assert.Equal(t, []string{"data should have required property 'name'"}, errs)
	})

	t.Run("nested path", func(t *testing.T) {
		account := mustSchema(t, `{"type":"object","properties":{"user":`+user+`}}`)
		_, errs := evaluate(t, account, `{"user": {"name": 1}}`, DefaultOptions())
		assert.Equal(t, []string{"data/user/name votre nom doit être une chaine valide"}, errs)
	})

	t.Run("general", func(t *testing.T) {
		s := mustSchema(t, `{"type":"number","maximum":1,"errorMessage":"too big"}`)
		_, errs := evaluate(t, s, `5`, DefaultOptions())
		assert.Equal(t, []string{"data too big"}, errs)

		_, errs = evaluate(t, s, `0`, DefaultOptions())
		assert.Empty(t, errs)
	})
}

// TestEvaluatePointerEscaping tests JSON pointer escaping of property names.
func TestEvaluatePointerEscaping(t *testing.T) {
	s := mustSchema(t, `{"type":"object","properties":{"a/b":{"type":"number"},"c~d":{"type":"number"}}}`)
	_, errs := evaluate(t, s, `{"a/b": "x", "c~d": "y"}`, DefaultOptions())
	assert.Equal(t, []string{"data/a~1b should be number", "data/c~0d should be number"}, errs)
}

// TestEvaluateDraft07Keywords tests the keywords custom overrides may use
// beyond those the compiler emits.
func TestEvaluateDraft07Keywords(t *testing.T) {
	tests := []struct {
		name     string
		schema   string
		input    string
		wantErrs []string
	}{
		{name: "const match", schema: `{"const":"card"}`, input: `"card"`},
		{name: "const mismatch", schema: `{"const":"card"}`, input: `"cash"`, wantErrs: []string{"data should be equal to constant"}},
		{name: "const object", schema: `{"const":{"a":[1]}}`, input: `{"a":[1]}`},
		{name: "exclusive minimum", schema: `{"type":"number","exclusiveMinimum":0}`, input: `0`, wantErrs: []string{"data should be > 0"}},
		{name: "exclusive maximum", schema: `{"type":"number","exclusiveMaximum":10}`, input: `10`, wantErrs: []string{"data should be < 10"}},
		{name: "inside exclusive bounds", schema: `{"type":"number","exclusiveMinimum":0,"exclusiveMaximum":10}`, input: `5`},
		{name: "multiple of", schema: `{"type":"number","multipleOf":2}`, input: `4`},
		{name: "not multiple of", schema: `{"type":"number","multipleOf":2}`, input: `-3`, wantErrs: []string{"data should be multiple of 2"}},
		{name: "email", schema: `{"type":"string","format":"email"}`, input: `"ann@example.com"`},
		{name: "bad email", schema: `{"type":"string","format":"email"}`, input: `"nope"`, wantErrs: []string{`data should match format "email"`}},
		{name: "date", schema: `{"type":"string","format":"date"}`, input: `"2026-03-01"`},
		{name: "bad date-time", schema: `{"type":"string","format":"date-time"}`, input: `"2026-03-01"`, wantErrs: []string{`data should match format "date-time"`}},
		{name: "ipv4", schema: `{"format":"ipv4"}`, input: `"10.0.0.1"`},
		{name: "ipv6 is not ipv4", schema: `{"format":"ipv4"}`, input: `"::1"`, wantErrs: []string{`data should match format "ipv4"`}},
		{name: "format ignores other types", schema: `{"format":"email"}`, input: `12`},
		{name: "min properties", schema: `{"type":"object","minProperties":1}`, input: `{}`, wantErrs: []string{"data should NOT have fewer than 1 properties"}},
		{name: "max properties", schema: `{"type":"object","maxProperties":1}`, input: `{"a":1,"b":2}`, wantErrs: []string{"data should NOT have more than 1 properties"}},
		{
			name: "property dependency", schema: `{"dependencies":{"card":["expiry"]}}`, input: `{"card":"4242"}`,
			wantErrs: []string{"data should have property expiry when property card is present"},
		},
		{
			name: "schema dependency", schema: `{"dependencies":{"card":{"required":["cvc"]}}}`, input: `{"card":"4242"}`,
			wantErrs: []string{"data should have required property 'cvc'"},
		},
		{name: "dependency absent", schema: `{"dependencies":{"card":["expiry"]}}`, input: `{"cash":1}`},
		{
			name: "property names", schema: `{"propertyNames":{"maxLength":3}}`, input: `{"abcd":1}`,
			wantErrs: []string{"data should NOT be longer than 3 characters", "data property name 'abcd' is invalid"},
		},
		{name: "unique items", schema: `{"uniqueItems":true}`, input: `[1,2,1]`, wantErrs: []string{"data should NOT have duplicate items (items ## 0 and 2 are identical)"}},
		{name: "contains", schema: `{"contains":{"type":"number"}}`, input: `[{},[]]`, wantErrs: []string{"data should contain a valid item"}},
		{
			name: "tuple items", schema: `{"items":[{"type":"number"},{"type":"boolean"}],"additionalItems":false}`, input: `[1,{},3]`,
			wantErrs: []string{"data should NOT have more than 2 items", "data/1 should be boolean"},
		},
		{
			name: "if then", schema: `{"if":{"properties":{"kind":{"const":"card"}}},"then":{"required":["number"]}}`, input: `{"kind":"card"}`,
			wantErrs: []string{"data should have required property 'number'", `data should match "then" schema`},
		},
		{
			name: "if else", schema: `{"if":{"properties":{"kind":{"const":"card"}}},"else":{"required":["iban"]}}`, input: `{"kind":"sepa"}`,
			wantErrs: []string{"data should have required property 'iban'", `data should match "else" schema`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.CoerceTypes = false
			_, errs := evaluate(t, mustSchema(t, tt.schema), tt.input, opts)
			if tt.wantErrs == nil {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, tt.wantErrs, errs)
			}
		})
	}
}

// TestEvaluatePatternProperties tests that pattern-matched keys are
// validated and are not additional.
func TestEvaluatePatternProperties(t *testing.T) {
	s := mustSchema(t, `{
		"type": "object",
		"properties": {"id": {"type": "string"}},
		"patternProperties": {"^x-": {"type": "number"}},
		"additionalProperties": false
	}`)

	out, errs := evaluate(t, s, `{"id":"a","x-rate":"2","other":true}`, DefaultOptions())
	assert.Empty(t, errs)
	assert.Equal(t, map[string]any{"id": "a", "x-rate": 2.0}, out)

	_, errs = evaluate(t, s, `{"x-rate":"fast"}`, DefaultOptions())
	assert.Equal(t, []string{"data/x-rate should be number"}, errs)
}

// TestEvaluateDefinitionRefs tests local references, including recursive
// definitions and a reference cycle that consumes no data.
func TestEvaluateDefinitionRefs(t *testing.T) {
	tree := mustSchema(t, `{
		"definitions": {
			"node": {
				"type": "object",
				"required": ["value"],
				"properties": {
					"value": {"type": "number"},
					"children": {"type": "array", "items": {"$ref": "#/definitions/node"}}
				}
			}
		},
		"$ref": "#/definitions/node"
	}`)

	_, errs := evaluate(t, tree, `{"value":1,"children":[{"value":2,"children":[{"value":3}]}]}`, DefaultOptions())
	assert.Empty(t, errs)

	_, errs = evaluate(t, tree, `{"value":1,"children":[{"children":[]}]}`, DefaultOptions())
	assert.Equal(t, []string{"data/children/0 should have required property 'value'"}, errs)

	loop := mustSchema(t, `{"definitions":{"a":{"$ref":"#/definitions/b"},"b":{"$ref":"#/definitions/a"}},"$ref":"#/definitions/a"}`)
	_, errs = evaluate(t, loop, `1`, DefaultOptions())
	assert.Empty(t, errs)

	_, errs = evaluate(t, mustSchema(t, `{"$ref":"#/definitions/missing"}`), `1`, DefaultOptions())
	assert.Equal(t, []string{"data can't resolve reference #/definitions/missing"}, errs)
}
