package rules

import (
	"encoding/json"
	"sort"
	"strings"
)

// Primitive is a built-in declared type.
type Primitive string

const (
	PrimitiveNumber  Primitive = "number"
	PrimitiveString  Primitive = "string"
	PrimitiveBoolean Primitive = "boolean"
	PrimitiveArray   Primitive = "array"
	PrimitiveObject  Primitive = "object"
	PrimitiveNull    Primitive = "null"
)

// Combinator is a union keyword.
type Combinator string

const (
	CombinatorOneOf Combinator = "oneOf"
	CombinatorAnyOf Combinator = "anyOf"
	CombinatorAllOf Combinator = "allOf"
)

// Type is the declared type of a field, an array item or a record value.
// Exactly one of Primitive, Model or Combinator is set.
type Type struct {
	Primitive  Primitive
	Model      string
	Combinator Combinator
	Members    []Type
}

var (
	Number  = Type{Primitive: PrimitiveNumber}
	String  = Type{Primitive: PrimitiveString}
	Boolean = Type{Primitive: PrimitiveBoolean}
	Array   = Type{Primitive: PrimitiveArray}
	Object  = Type{Primitive: PrimitiveObject}
	Null    = Type{Primitive: PrimitiveNull}
)

// Ref returns a reference to a registered model.
func Ref(model string) Type {
	return Type{Model: model}
}

// OneOf accepts values matching exactly one member.
func OneOf(members ...Type) Type {
	return Type{Combinator: CombinatorOneOf, Members: members}
}

// AnyOf accepts values matching at least one member.
func AnyOf(members ...Type) Type {
	return Type{Combinator: CombinatorAnyOf, Members: members}
}

// AllOf accepts values matching every member.
func AllOf(members ...Type) Type {
	return Type{Combinator: CombinatorAllOf, Members: members}
}

// ParseType maps a primitive name to its Type and anything else to a model
// reference.
func ParseType(name string) Type {
	switch Primitive(name) {
	case PrimitiveNumber, PrimitiveString, PrimitiveBoolean, PrimitiveArray, PrimitiveObject, PrimitiveNull:
		return Type{Primitive: Primitive(name)}
	}
	return Ref(name)
}

// ParseCombinator validates a union keyword.
func ParseCombinator(s string) (Combinator, bool) {
	switch Combinator(s) {
	case CombinatorOneOf, CombinatorAnyOf, CombinatorAllOf:
		return Combinator(s), true
	}
	return "", false
}

func (t Type) IsZero() bool {
	return t.Primitive == "" && t.Model == "" && t.Combinator == ""
}

func (t Type) IsPrimitive() bool { return t.Primitive != "" }
func (t Type) IsRef() bool       { return t.Model != "" }
func (t Type) IsUnion() bool     { return t.Combinator != "" }

// Refs returns the model names t references, members included, sorted and
// deduplicated.
func (t Type) Refs() []string {
	seen := map[string]bool{}
	t.collectRefs(seen)
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (t Type) collectRefs(seen map[string]bool) {
	if t.Model != "" {
		seen[t.Model] = true
	}
	for _, m := range t.Members {
		m.collectRefs(seen)
	}
}

func (t Type) String() string {
	switch {
	case t.Primitive != "":
		return string(t.Primitive)
	case t.Model != "":
		return t.Model
	case t.Combinator != "":
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		return string(t.Combinator) + "(" + strings.Join(parts, ", ") + ")"
	}
	return "<none>"
}

// MarshalJSON renders primitives as their name, references as {"ref": name}
// and unions as {"<combinator>": [members]}.
func (t Type) MarshalJSON() ([]byte, error) {
	switch {
	case t.Primitive != "":
		return json.Marshal(string(t.Primitive))
	case t.Model != "":
		return json.Marshal(map[string]string{"ref": t.Model})
	case t.Combinator != "":
		members := t.Members
		if members == nil {
			members = []Type{}
		}
		return json.Marshal(map[string][]Type{string(t.Combinator): members})
	}
	return []byte("null"), nil
}
