package loader

import (
	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/rules"
)

// Declaration is one model read from a file.
type Declaration struct {
	Name        string
	Description string
	Extends     string
	Fields      []FieldDecl
	Schema      map[string]any // schema override, nil if none
	Pos         Position
}

// FieldDecl is one field of a declaration with its rules in source order.
type FieldDecl struct {
	Name  string
	Type  rules.Type
	Rules []rules.Rule
	Pos   Position
}

// entry is one key of a field body, in source order. Values are normalized.
type entry struct {
	Key   string
	Value any
	Pos   Position
}

// unionKeys map field keys to union combinators.
var unionKeys = map[string]rules.Combinator{
	"one_of": rules.CombinatorOneOf,
	"any_of": rules.CombinatorAnyOf,
	"all_of": rules.CombinatorAllOf,
}

// buildField turns the entries of a field body into a FieldDecl.
//
// The type comes from the type key or a union key and defaults to object.
// Every other key maps to one rule, in the order written.
func buildField(name string, pos Position, entries []entry) (FieldDecl, error) {
	field := FieldDecl{Name: name, Type: rules.Object, Pos: pos}

	typed := false
	for _, e := range entries {
		if e.Key != "type" && unionKeys[e.Key] == "" {
			continue
		}
		if typed {
			return field, errorf(ErrCodeInvalidType, e.Pos, "field %s declares more than one type", name)
		}
		t, err := parseTypeValue(e)
		if err != nil {
			return field, err
		}
		field.Type = t
		typed = true
	}

	for _, e := range entries {
		if e.Key == "type" || unionKeys[e.Key] != "" {
			continue
		}
		rule, ok, err := ruleFor(field, e)
		if err != nil {
			return field, err
		}
		if ok {
			field.Rules = append(field.Rules, rule)
		}
	}
	return field, nil
}

// ruleFor maps one entry to a rule. Boolean flags set to false yield no rule.
func ruleFor(field FieldDecl, e entry) (rules.Rule, bool, error) {
	switch e.Key {
	case "required", "trim", "to_lowercase", "to_uppercase":
		on, ok := e.Value.(bool)
		if !ok {
			return rules.Rule{}, false, invalid(field, e, "a boolean")
		}
		if !on {
			return rules.Rule{}, false, nil
		}
		switch e.Key {
		case "required":
			return rules.Required(), true, nil
		case "trim":
			return rules.Trim(), true, nil
		case "to_lowercase":
			return rules.ToLowerCase(), true, nil
		default:
			return rules.ToUpperCase(), true, nil
		}

	case "nullable":
		switch v := e.Value.(type) {
		case bool:
			if !v {
				return rules.Rule{}, false, nil
			}
			return rules.Nullable(field.Type), true, nil
		case string:
			return rules.Nullable(rules.ParseType(v)), true, nil
		}
		return rules.Rule{}, false, invalid(field, e, "a boolean or a type name")

	case "min", "max":
		n, ok := e.Value.(float64)
		if !ok {
			return rules.Rule{}, false, invalid(field, e, "a number")
		}
		if e.Key == "min" {
			return rules.Min(n), true, nil
		}
		return rules.Max(n), true, nil

	case "pattern", "description", "error":
		s, ok := e.Value.(string)
		if !ok {
			return rules.Rule{}, false, invalid(field, e, "a string")
		}
		switch e.Key {
		case "pattern":
			return rules.Pattern(s), true, nil
		case "description":
			return rules.Description(s), true, nil
		default:
			return rules.CustomError(s), true, nil
		}

	case "item", "record":
		t, err := parseTypeValue(e)
		if err != nil {
			return rules.Rule{}, false, err
		}
		if e.Key == "item" {
			return rules.Item(t), true, nil
		}
		return rules.Record(t), true, nil

	case "enum":
		values, err := stringList(e)
		if err != nil {
			return rules.Rule{}, false, err
		}
		return rules.Enum(values...), true, nil

	case "default":
		return rules.Default(jsonvalue.DeepCopy(e.Value)), true, nil
	}
	return rules.Rule{}, false, errorf(ErrCodeUnknownRule, e.Pos, "field %s: unknown rule %q", field.Name, e.Key)
}

// parseTypeValue reads a type: a type name, a list of names under a union
// key, or a {one_of|any_of|all_of: [...]} object.
func parseTypeValue(e entry) (rules.Type, error) {
	if c, ok := unionKeys[e.Key]; ok {
		return parseUnion(c, e)
	}
	switch v := e.Value.(type) {
	case string:
		if v == "" {
			return rules.Type{}, errorf(ErrCodeInvalidType, e.Pos, "%s: empty type name", e.Key)
		}
		return rules.ParseType(v), nil
	case map[string]any:
		if len(v) != 1 {
			return rules.Type{}, errorf(ErrCodeInvalidType, e.Pos, "%s: a union object needs exactly one of one_of, any_of, all_of", e.Key)
		}
		for key, members := range v {
			c, ok := unionKeys[key]
			if !ok {
				return rules.Type{}, errorf(ErrCodeInvalidType, e.Pos, "%s: unknown union %q", e.Key, key)
			}
			return parseUnion(c, entry{Key: key, Value: members, Pos: e.Pos})
		}
	}
	return rules.Type{}, errorf(ErrCodeInvalidType, e.Pos, "%s: expected a type name or a union, got %T", e.Key, e.Value)
}

func parseUnion(c rules.Combinator, e entry) (rules.Type, error) {
	names, err := stringList(e)
	if err != nil {
		return rules.Type{}, err
	}
	if len(names) == 0 {
		return rules.Type{}, errorf(ErrCodeInvalidType, e.Pos, "%s: a union needs at least one member", e.Key)
	}
	members := make([]rules.Type, len(names))
	for i, n := range names {
		members[i] = rules.ParseType(n)
	}
	switch c {
	case rules.CombinatorAnyOf:
		return rules.AnyOf(members...), nil
	case rules.CombinatorAllOf:
		return rules.AllOf(members...), nil
	default:
		return rules.OneOf(members...), nil
	}
}

func stringList(e entry) ([]string, error) {
	list, ok := e.Value.([]any)
	if !ok {
		return nil, errorf(ErrCodeInvalidRule, e.Pos, "%s: expected a list of strings, got %T", e.Key, e.Value)
	}
	out := make([]string, len(list))
	for i, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, errorf(ErrCodeInvalidRule, e.Pos, "%s[%d]: expected a string, got %T", e.Key, i, v)
		}
		out[i] = s
	}
	return out, nil
}

func invalid(field FieldDecl, e entry, want string) *LoadError {
	return errorf(ErrCodeInvalidRule, e.Pos, "field %s: %s must be %s, got %T", field.Name, e.Key, want, e.Value)
}

// Register declares every model on reg, in order. Anomalies raised by the
// registry (extends cycles, malformed rule values) are returned as
// LoadErrors instead of panicking.
func Register(reg *rules.Registry, decls []Declaration) (err error) {
	var current Declaration
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		a, ok := r.(*rules.CompilationAnomaly)
		if !ok {
			panic(r)
		}
		err = &LoadError{Code: ErrCodeAnomaly, Message: a.Error(), Pos: current.Pos}
	}()

	for _, d := range decls {
		current = d
		b := reg.Model(d.Name)
		if d.Description != "" {
			b.Describe(d.Description)
		}
		if d.Extends != "" {
			b.ExtendRules(d.Extends)
		}
		if d.Schema != nil {
			b.CustomSchema(d.Schema)
			continue
		}
		for _, f := range d.Fields {
			b.Field(f.Name, f.Type, f.Rules...)
		}
	}
	return nil
}

// checkModel validates the parts of a declaration that do not depend on the
// source format.
func checkModel(d Declaration) error {
	if d.Schema != nil && len(d.Fields) > 0 {
		return errorf(ErrCodeInvalidModel, d.Pos, "model %s: schema and fields are exclusive", d.Name)
	}
	if d.Extends == d.Name {
		return errorf(ErrCodeInvalidModel, d.Pos, "model %s extends itself", d.Name)
	}
	return nil
}

func unknownModelKey(model, key string, pos Position) error {
	return errorf(ErrCodeInvalidModel, pos, "model %s: unknown key %q", model, key)
}

func wrongModelValue(model, key, want string, got any, pos Position) error {
	return errorf(ErrCodeInvalidModel, pos, "model %s: %s must be %s, got %T", model, key, want, got)
}
