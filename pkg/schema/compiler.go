package schema

import (
	"github.com/roach88/molder/pkg/rules"
)

// Compiler turns registered rule tables into schema documents.
//
// Compilation is a pure function of the registry: compiling a model twice
// yields deep-equal documents. The compiler does not cache; callers do.
type Compiler struct {
	reg *rules.Registry
}

// NewCompiler returns a compiler reading from reg.
func NewCompiler(reg *rules.Registry) *Compiler {
	return &Compiler{reg: reg}
}

// Compile returns the schema of model.
//
// A schema override is returned as is. Otherwise the model's chain is
// merged field by field (nearest definer wins per rule kind) and each field
// is mapped to a schema fragment according to its resolved type.
//
// Static defects (recursive references, rule kinds that do not apply to the
// field type, malformed overrides or overrides using keywords the evaluator
// does not support) panic with *rules.CompilationAnomaly.
func (c *Compiler) Compile(model string) *Schema {
	st := &compileState{inProgress: map[string]bool{}}
	return c.compileModel(st, model, false)
}

// TryCompile is Compile with anomalies returned as errors.
func (c *Compiler) TryCompile(model string) (s *Schema, err error) {
	defer rules.CatchAnomaly(&err)
	return c.Compile(model), nil
}

type compileState struct {
	inProgress map[string]bool
}

// compileModel builds the object schema of model. additional opens the
// schema to extra properties, used for union members.
func (c *Compiler) compileModel(st *compileState, model string, additional bool) *Schema {
	if doc, ok := c.reg.CustomSchema(model); ok {
		s, err := FromDocument(doc)
		if err == nil {
			err = s.Check()
		}
		if err != nil {
			panic(rules.Anomaly(model, "", rules.KindCustomSchema, "%v", err))
		}
		return s
	}

	if st.inProgress[model] {
		panic(rules.Anomaly(model, "", "", "recursive model reference"))
	}
	st.inProgress[model] = true
	defer delete(st.inProgress, model)

	s := &Schema{
		Title:                model,
		Description:          c.reg.Description(model),
		Type:                 TypeSet{"object"},
		Properties:           Properties{},
		AdditionalProperties: Bool(additional),
		ErrorMessage:         &ErrorMessage{},
	}

	for _, field := range c.reg.Resolve(model) {
		s.Properties = append(s.Properties, Property{
			Name:   field.Name,
			Schema: c.compileField(st, model, field),
		})
		if field.Required {
			s.Required = append(s.Required, field.Name)
		}
		if msg, ok := field.Get(rules.KindCustomError); ok {
			s.ErrorMessage.Properties = append(s.ErrorMessage.Properties, Message{
				Field: field.Name,
				Text:  msg.(string),
			})
		}
	}
	return s
}

// typeSchema maps a declared type to its schema. Models without rules and
// unknown models compile to a plain object.
func (c *Compiler) typeSchema(st *compileState, t rules.Type, additional bool) *Schema {
	switch {
	case t.IsPrimitive():
		return &Schema{Type: TypeSet{string(t.Primitive)}}
	case t.IsRef():
		if !c.reg.HasRules(t.Model) {
			return &Schema{Type: TypeSet{"object"}}
		}
		return c.compileModel(st, t.Model, additional)
	case t.IsUnion():
		return c.unionSchema(st, t)
	}
	return &Schema{Type: TypeSet{"object"}}
}

// unionSchema builds the union envelope: an object restricted to the keys
// of every member, whose members are opened to extra properties so the
// envelope alone strips unknown keys.
func (c *Compiler) unionSchema(st *compileState, t rules.Type) *Schema {
	members := make([]*Schema, 0, len(t.Members))
	keys := Properties{}
	for _, m := range t.Members {
		ms := c.typeSchema(st, m, true)
		members = append(members, ms)
		for _, prop := range ms.Properties {
			if _, seen := keys.Get(prop.Name); !seen {
				keys = append(keys, Property{Name: prop.Name, Schema: &Schema{}})
			}
		}
	}

	env := &Schema{
		Type:                 TypeSet{"object"},
		AdditionalProperties: Bool(false),
		Properties:           keys,
	}
	switch t.Combinator {
	case rules.CombinatorOneOf:
		env.OneOf = members
	case rules.CombinatorAnyOf:
		env.AnyOf = members
	case rules.CombinatorAllOf:
		env.AllOf = members
	}
	return env
}
