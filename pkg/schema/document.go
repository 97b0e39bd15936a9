package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roach88/molder/pkg/jsonvalue"
)

// Schema is a draft-07 schema document plus the two custom keywords
// understood by the evaluator: transform and errorMessage.
//
// Annotation keywords ($id, $comment, examples, x-* extensions...) are kept
// in Extra so an override document round-trips unchanged. Check rejects
// any other keyword found there.
type Schema struct {
	Title       string
	Description string
	Type        TypeSet

	Definitions Properties // nil means absent
	Ref         string

	Properties           Properties // nil means absent
	PatternProperties    Properties // keyed by pattern
	Required             []string
	AdditionalProperties *Additional
	MinProperties        *int
	MaxProperties        *int
	PropertyNames        *Schema
	Dependencies         []Dependency

	Items           *Schema
	TupleItems      []*Schema // items given as a list
	AdditionalItems *Additional
	MinItems        *int
	MaxItems        *int
	UniqueItems     bool
	Contains        *Schema

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64

	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string

	Enum     []any
	Const    any
	HasConst bool

	Default    any
	HasDefault bool

	Transform []string

	AllOf []*Schema
	AnyOf []*Schema
	OneOf []*Schema
	Not   *Schema

	If   *Schema
	Then *Schema
	Else *Schema

	ErrorMessage *ErrorMessage

	Extra map[string]any
}

// Dependency is one entry of the dependencies keyword: either the names
// that must be present alongside Name, or a schema the whole object must
// satisfy when Name is present.
type Dependency struct {
	Name     string
	Required []string
	Schema   *Schema
}

// Dependencies keeps declaration order.
type Dependencies []Dependency

func (d Dependencies) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, dep := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		var v any = dep.Schema
		if dep.Schema == nil {
			v = append([]string{}, dep.Required...)
		}
		if err := writeMember(&buf, dep.Name, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Dependencies) UnmarshalJSON(data []byte) error {
	out := Dependencies{}
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		dep := Dependency{Name: key}
		if isJSONArray(raw) {
			if err := json.Unmarshal(raw, &dep.Required); err != nil {
				return err
			}
		} else {
			dep.Schema = &Schema{}
			if err := json.Unmarshal(raw, dep.Schema); err != nil {
				return err
			}
		}
		out = append(out, dep)
		return nil
	})
	if err != nil {
		return err
	}
	*d = out
	return nil
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// TypeSet is the type keyword. A single type marshals as a string.
type TypeSet []string

// Is reports whether the set is exactly the single type name.
func (t TypeSet) Is(name string) bool {
	return len(t) == 1 && t[0] == name
}

// Contains reports whether name is one of the types.
func (t TypeSet) Contains(name string) bool {
	for _, n := range t {
		if n == name {
			return true
		}
	}
	return false
}

func (t TypeSet) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

func (t *TypeSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TypeSet{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("type must be a string or a list of strings")
	}
	*t = TypeSet(many)
	return nil
}

// Property is one entry of the properties keyword.
type Property struct {
	Name   string
	Schema *Schema
}

// Properties keeps declaration order, which drives violation order.
type Properties []Property

// Get returns the schema of a named property.
func (p Properties) Get(name string) (*Schema, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Schema, true
		}
	}
	return nil, false
}

// Names returns property names in order.
func (p Properties) Names() []string {
	out := make([]string, len(p))
	for i, prop := range p {
		out[i] = prop.Name
	}
	return out
}

func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, prop.Name, prop.Schema); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	out := Properties{}
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		s := &Schema{}
		if err := json.Unmarshal(raw, s); err != nil {
			return err
		}
		out = append(out, Property{Name: key, Schema: s})
		return nil
	})
	if err != nil {
		return err
	}
	*p = out
	return nil
}

// Additional is the additionalProperties keyword: a boolean, or a schema
// every extra property must satisfy.
type Additional struct {
	Allowed bool
	Schema  *Schema
}

// Bool returns a boolean additionalProperties.
func Bool(allowed bool) *Additional {
	return &Additional{Allowed: allowed}
}

// AdditionalSchema returns a schema-valued additionalProperties.
func AdditionalSchema(s *Schema) *Additional {
	return &Additional{Allowed: true, Schema: s}
}

func (a Additional) MarshalJSON() ([]byte, error) {
	if a.Schema != nil {
		return json.Marshal(a.Schema)
	}
	return json.Marshal(a.Allowed)
}

func (a *Additional) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*a = Additional{Allowed: b}
		return nil
	}
	s := &Schema{}
	if err := json.Unmarshal(data, s); err != nil {
		return err
	}
	*a = Additional{Allowed: true, Schema: s}
	return nil
}

// Message is a custom message for one property.
type Message struct {
	Field string
	Text  string
}

// ErrorMessage is the errorMessage keyword. General replaces every
// violation raised by the schema; Properties replaces violations raised on
// a direct property.
type ErrorMessage struct {
	General    string
	Properties []Message
}

// For returns the custom message declared for field.
func (e *ErrorMessage) For(field string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, m := range e.Properties {
		if m.Field == field {
			return m.Text, true
		}
	}
	return "", false
}

func (e ErrorMessage) MarshalJSON() ([]byte, error) {
	if e.General != "" && len(e.Properties) == 0 {
		return json.Marshal(e.General)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"properties":{`)
	for i, m := range e.Properties {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, m.Field, m.Text); err != nil {
			return nil, err
		}
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func (e *ErrorMessage) UnmarshalJSON(data []byte) error {
	var general string
	if err := json.Unmarshal(data, &general); err == nil {
		*e = ErrorMessage{General: general}
		return nil
	}
	out := ErrorMessage{}
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		if key != "properties" {
			return nil
		}
		return decodeObject(raw, func(field string, msg json.RawMessage) error {
			var text string
			if err := json.Unmarshal(msg, &text); err != nil {
				return fmt.Errorf("message for %s must be a string", field)
			}
			out.Properties = append(out.Properties, Message{Field: field, Text: text})
			return nil
		})
	})
	if err != nil {
		return err
	}
	*e = out
	return nil
}

// MarshalJSON writes keywords in a fixed order so documents are
// byte-for-byte stable.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	put := func(key string, v any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		return writeMember(&buf, key, v)
	}

	type member struct {
		key     string
		present bool
		value   any
	}
	var items any = s.Items
	if s.TupleItems != nil {
		items = s.TupleItems
	}
	members := []member{
		{"$ref", s.Ref != "", s.Ref},
		{"title", s.Title != "", s.Title},
		{"description", s.Description != "", s.Description},
		{"type", len(s.Type) > 0, s.Type},
		{"definitions", s.Definitions != nil, s.Definitions},
		{"properties", s.Properties != nil, s.Properties},
		{"patternProperties", s.PatternProperties != nil, s.PatternProperties},
		{"required", len(s.Required) > 0, s.Required},
		{"additionalProperties", s.AdditionalProperties != nil, s.AdditionalProperties},
		{"minProperties", s.MinProperties != nil, s.MinProperties},
		{"maxProperties", s.MaxProperties != nil, s.MaxProperties},
		{"propertyNames", s.PropertyNames != nil, s.PropertyNames},
		{"dependencies", s.Dependencies != nil, Dependencies(s.Dependencies)},
		{"items", s.Items != nil || s.TupleItems != nil, items},
		{"additionalItems", s.AdditionalItems != nil, s.AdditionalItems},
		{"minItems", s.MinItems != nil, s.MinItems},
		{"maxItems", s.MaxItems != nil, s.MaxItems},
		{"uniqueItems", s.UniqueItems, s.UniqueItems},
		{"contains", s.Contains != nil, s.Contains},
		{"minimum", s.Minimum != nil, s.Minimum},
		{"maximum", s.Maximum != nil, s.Maximum},
		{"exclusiveMinimum", s.ExclusiveMinimum != nil, s.ExclusiveMinimum},
		{"exclusiveMaximum", s.ExclusiveMaximum != nil, s.ExclusiveMaximum},
		{"multipleOf", s.MultipleOf != nil, s.MultipleOf},
		{"minLength", s.MinLength != nil, s.MinLength},
		{"maxLength", s.MaxLength != nil, s.MaxLength},
		{"pattern", s.Pattern != "", s.Pattern},
		{"format", s.Format != "", s.Format},
		{"enum", s.Enum != nil, s.Enum},
		{"const", s.HasConst, s.Const},
		{"default", s.HasDefault, s.Default},
		{"transform", len(s.Transform) > 0, s.Transform},
		{"allOf", len(s.AllOf) > 0, s.AllOf},
		{"anyOf", len(s.AnyOf) > 0, s.AnyOf},
		{"oneOf", len(s.OneOf) > 0, s.OneOf},
		{"not", s.Not != nil, s.Not},
		{"if", s.If != nil, s.If},
		{"then", s.Then != nil, s.Then},
		{"else", s.Else != nil, s.Else},
		{"errorMessage", s.ErrorMessage != nil, s.ErrorMessage},
	}
	for _, m := range members {
		if !m.present {
			continue
		}
		if err := put(m.key, m.value); err != nil {
			return nil, fmt.Errorf("%s: %w", m.key, err)
		}
	}

	extra := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		if err := put(k, s.Extra[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts object schemas and the boolean schemas true
// (anything) and false (nothing).
func (s *Schema) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch string(trimmed) {
	case "true":
		*s = Schema{}
		return nil
	case "false":
		*s = Schema{Not: &Schema{}}
		return nil
	}

	out := Schema{}
	err := decodeObject(trimmed, func(key string, raw json.RawMessage) error {
		switch key {
		case "title":
			return json.Unmarshal(raw, &out.Title)
		case "description":
			return json.Unmarshal(raw, &out.Description)
		case "type":
			return json.Unmarshal(raw, &out.Type)
		case "properties":
			return json.Unmarshal(raw, &out.Properties)
		case "required":
			return json.Unmarshal(raw, &out.Required)
		case "additionalProperties":
			out.AdditionalProperties = &Additional{}
			return json.Unmarshal(raw, out.AdditionalProperties)
		case "items":
			if isJSONArray(raw) {
				out.TupleItems = []*Schema{}
				return json.Unmarshal(raw, &out.TupleItems)
			}
			out.Items = &Schema{}
			return json.Unmarshal(raw, out.Items)
		case "additionalItems":
			out.AdditionalItems = &Additional{}
			return json.Unmarshal(raw, out.AdditionalItems)
		case "uniqueItems":
			return json.Unmarshal(raw, &out.UniqueItems)
		case "contains":
			out.Contains = &Schema{}
			return json.Unmarshal(raw, out.Contains)
		case "$ref":
			return json.Unmarshal(raw, &out.Ref)
		case "definitions":
			return json.Unmarshal(raw, &out.Definitions)
		case "patternProperties":
			return json.Unmarshal(raw, &out.PatternProperties)
		case "minProperties":
			return json.Unmarshal(raw, &out.MinProperties)
		case "maxProperties":
			return json.Unmarshal(raw, &out.MaxProperties)
		case "propertyNames":
			out.PropertyNames = &Schema{}
			return json.Unmarshal(raw, out.PropertyNames)
		case "dependencies":
			var deps Dependencies
			if err := json.Unmarshal(raw, &deps); err != nil {
				return err
			}
			out.Dependencies = deps
		case "exclusiveMinimum":
			return json.Unmarshal(raw, &out.ExclusiveMinimum)
		case "exclusiveMaximum":
			return json.Unmarshal(raw, &out.ExclusiveMaximum)
		case "multipleOf":
			return json.Unmarshal(raw, &out.MultipleOf)
		case "format":
			return json.Unmarshal(raw, &out.Format)
		case "const":
			v, err := jsonvalue.Decode(raw)
			if err != nil {
				return err
			}
			out.Const, out.HasConst = v, true
		case "if":
			out.If = &Schema{}
			return json.Unmarshal(raw, out.If)
		case "then":
			out.Then = &Schema{}
			return json.Unmarshal(raw, out.Then)
		case "else":
			out.Else = &Schema{}
			return json.Unmarshal(raw, out.Else)
		case "minItems":
			return json.Unmarshal(raw, &out.MinItems)
		case "maxItems":
			return json.Unmarshal(raw, &out.MaxItems)
		case "minimum":
			return json.Unmarshal(raw, &out.Minimum)
		case "maximum":
			return json.Unmarshal(raw, &out.Maximum)
		case "minLength":
			return json.Unmarshal(raw, &out.MinLength)
		case "maxLength":
			return json.Unmarshal(raw, &out.MaxLength)
		case "pattern":
			return json.Unmarshal(raw, &out.Pattern)
		case "enum":
			v, err := jsonvalue.Decode(raw)
			if err != nil {
				return err
			}
			arr, ok := v.([]any)
			if !ok {
				return fmt.Errorf("enum must be an array")
			}
			out.Enum = arr
		case "default":
			v, err := jsonvalue.Decode(raw)
			if err != nil {
				return err
			}
			out.Default, out.HasDefault = v, true
		case "transform":
			return json.Unmarshal(raw, &out.Transform)
		case "allOf":
			return json.Unmarshal(raw, &out.AllOf)
		case "anyOf":
			return json.Unmarshal(raw, &out.AnyOf)
		case "oneOf":
			return json.Unmarshal(raw, &out.OneOf)
		case "not":
			out.Not = &Schema{}
			return json.Unmarshal(raw, out.Not)
		case "errorMessage":
			out.ErrorMessage = &ErrorMessage{}
			return json.Unmarshal(raw, out.ErrorMessage)
		default:
			v, err := jsonvalue.Decode(raw)
			if err != nil {
				return err
			}
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[key] = v
		}
		return nil
	})
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// FromDocument parses a generic document (an override) into a Schema.
func FromDocument(doc map[string]any) (*Schema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode schema document: %w", err)
	}
	s := &Schema{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode schema document: %w", err)
	}
	return s, nil
}

// Document renders the schema as a normalized generic value.
func (s *Schema) Document() (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	v, err := jsonvalue.Decode(data)
	if err != nil {
		return nil, err
	}
	doc, _ := v.(map[string]any)
	return doc, nil
}

// Clone returns a deep copy.
func (s *Schema) Clone() *Schema {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Errorf("schema: clone: %w", err))
	}
	out := &Schema{}
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Errorf("schema: clone: %w", err))
	}
	return out
}

func writeMember(buf *bytes.Buffer, key string, v any) error {
	k, err := marshalNoEscape(key)
	if err != nil {
		return err
	}
	val, err := marshalNoEscape(v)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// decodeObject walks a JSON object in document order.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected an object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	_, err = dec.Token()
	return err
}
