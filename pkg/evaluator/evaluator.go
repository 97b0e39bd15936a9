package evaluator

import (
	"fmt"

	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/schema"
)

// Options select the mutating behaviours of an evaluation.
type Options struct {
	// CoerceTypes converts scalars to the schema type when they do not
	// match it ("true" → true, 32 → "32").
	CoerceTypes bool
	// UseDefaults fills absent properties from their default keyword.
	UseDefaults bool
	// RemoveAdditional deletes properties not listed in an object schema
	// whose additionalProperties is false, instead of reporting them.
	RemoveAdditional bool
}

// DefaultOptions enables every mutating behaviour.
func DefaultOptions() Options {
	return Options{CoerceTypes: true, UseDefaults: true, RemoveAdditional: true}
}

// Violation is one failed constraint.
type Violation struct {
	Path    string         `json:"path"` // JSON pointer, "" for the root
	Keyword string         `json:"keyword"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}

// String renders the violation as "data<path> <message>".
func (v Violation) String() string {
	return "data" + v.Path + " " + v.Message
}

// Evaluate validates value against s and returns the sanitized value with
// every violation found. value must be normalized (see jsonvalue.Normalize)
// and may be mutated in place; callers wanting to keep it pass a copy.
//
// A $ref replaces its schema's other keywords. Otherwise keywords run in a
// fixed order: type (with coercion), string, number, array and object
// keywords for values of the matching type, then const, enum, not, anyOf,
// oneOf, allOf and if. errorMessage rewrites the violations raised under
// the schema that declares it.
func Evaluate(s *schema.Schema, value any, opts Options) (any, []Violation) {
	e := &evaluator{opts: opts, active: map[refVisit]bool{}}
	out, violations := e.eval(s, value, "")
	if violations == nil {
		violations = []Violation{}
	}
	return out, violations
}

type evaluator struct {
	opts   Options
	scopes []schema.Properties // definitions of enclosing schemas
	active map[refVisit]bool
}

// refVisit is a reference being followed at a data path. Following it
// again at the same path cannot make progress.
type refVisit struct {
	ref  *schema.Schema
	path string
}

func (e *evaluator) eval(s *schema.Schema, v any, path string) (any, []Violation) {
	if s == nil {
		return v, nil
	}
	if s.Definitions != nil {
		e.scopes = append(e.scopes, s.Definitions)
		defer func() { e.scopes = e.scopes[:len(e.scopes)-1] }()
	}
	if s.Ref != "" {
		return e.ref(s.Ref, v, path)
	}
	var vs []Violation

	if len(s.Type) > 0 && !matchesAny(v, s.Type) {
		coerced, ok := any(nil), false
		if e.opts.CoerceTypes {
			coerced, ok = coerce(v, s.Type)
		}
		if ok {
			v = coerced
		} else {
			vs = append(vs, typeViolation(path, s.Type))
		}
	}

	switch val := v.(type) {
	case string:
		v, vs = e.stringKeywords(s, val, path, vs)
	case float64:
		vs = numberKeywords(s, val, path, vs)
	case []any:
		vs = e.arrayKeywords(s, val, path, vs)
	case map[string]any:
		vs = e.objectKeywords(s, val, path, vs)
	}

	if s.HasConst && !jsonvalue.Equal(v, s.Const) {
		vs = append(vs, Violation{
			Path:    path,
			Keyword: "const",
			Message: "should be equal to constant",
			Params:  map[string]any{"allowedValue": s.Const},
		})
	}

	if s.Enum != nil && !inEnum(v, s.Enum) {
		vs = append(vs, Violation{
			Path:    path,
			Keyword: "enum",
			Message: "should be equal to one of the allowed values",
			Params:  map[string]any{"allowedValues": s.Enum},
		})
	}

	if s.Not != nil {
		if _, notVs := e.eval(s.Not, jsonvalue.DeepCopy(v), path); len(notVs) == 0 {
			vs = append(vs, Violation{Path: path, Keyword: "not", Message: "should NOT be valid", Params: map[string]any{}})
		}
	}

	if len(s.AnyOf) > 0 {
		v, vs = e.anyOf(s.AnyOf, v, path, vs)
	}
	if len(s.OneOf) > 0 {
		v, vs = e.oneOf(s.OneOf, v, path, vs)
	}
	for _, sub := range s.AllOf {
		var subVs []Violation
		v, subVs = e.eval(sub, v, path)
		vs = append(vs, subVs...)
	}
	if s.If != nil {
		v, vs = e.ifThenElse(s, v, path, vs)
	}

	if s.ErrorMessage != nil {
		vs = applyErrorMessage(s.ErrorMessage, path, vs)
	}
	return v, vs
}

func (e *evaluator) ref(ref string, v any, path string) (any, []Violation) {
	target, ok := schema.ResolveRef(ref, e.scopes)
	if !ok {
		return v, []Violation{{
			Path:    path,
			Keyword: "$ref",
			Message: "can't resolve reference " + ref,
			Params:  map[string]any{"ref": ref},
		}}
	}
	visit := refVisit{ref: target, path: path}
	if e.active[visit] {
		return v, nil
	}
	e.active[visit] = true
	defer delete(e.active, visit)
	return e.eval(target, v, path)
}

// ifThenElse evaluates if on a copy, then applies then or else to the
// value itself.
func (e *evaluator) ifThenElse(s *schema.Schema, v any, path string, vs []Violation) (any, []Violation) {
	_, ifVs := e.eval(s.If, jsonvalue.DeepCopy(v), path)
	branch, name := s.Then, "then"
	if len(ifVs) > 0 {
		branch, name = s.Else, "else"
	}
	if branch == nil {
		return v, vs
	}
	out, bvs := e.eval(branch, v, path)
	if len(bvs) == 0 {
		return out, vs
	}
	vs = append(vs, bvs...)
	return out, append(vs, Violation{
		Path:    path,
		Keyword: "if",
		Message: fmt.Sprintf("should match %q schema", name),
		Params:  map[string]any{"failingKeyword": name},
	})
}

// anyOf adopts the first branch that passes. Branches run on copies so a
// failing branch leaves no trace on the value.
func (e *evaluator) anyOf(branches []*schema.Schema, v any, path string, vs []Violation) (any, []Violation) {
	var branchVs []Violation
	for _, branch := range branches {
		out, bvs := e.eval(branch, jsonvalue.DeepCopy(v), path)
		if len(bvs) == 0 {
			return out, vs
		}
		branchVs = append(branchVs, bvs...)
	}
	vs = append(vs, branchVs...)
	return v, append(vs, Violation{Path: path, Keyword: "anyOf", Message: "should match some schema in anyOf", Params: map[string]any{}})
}

// oneOf adopts the only passing branch. When none pass, branch violations
// are reported before the oneOf violation; when several pass only the
// oneOf violation is reported.
func (e *evaluator) oneOf(branches []*schema.Schema, v any, path string, vs []Violation) (any, []Violation) {
	var (
		branchVs []Violation
		passing  []any
		adopted  any
	)
	for i, branch := range branches {
		out, bvs := e.eval(branch, jsonvalue.DeepCopy(v), path)
		if len(bvs) == 0 {
			passing = append(passing, float64(i))
			adopted = out
			continue
		}
		branchVs = append(branchVs, bvs...)
	}

	switch len(passing) {
	case 1:
		return adopted, vs
	case 0:
		vs = append(vs, branchVs...)
		return v, append(vs, Violation{
			Path: path, Keyword: "oneOf",
			Message: "should match exactly one schema in oneOf",
			Params:  map[string]any{"passingSchemas": nil},
		})
	default:
		return v, append(vs, Violation{
			Path: path, Keyword: "oneOf",
			Message: "should match exactly one schema in oneOf",
			Params:  map[string]any{"passingSchemas": passing},
		})
	}
}

func inEnum(v any, allowed []any) bool {
	for _, a := range allowed {
		if jsonvalue.Equal(v, a) {
			return true
		}
	}
	return false
}

// childPath appends an escaped JSON pointer token.
func childPath(path, token string) string {
	return path + "/" + schema.EscapeToken(token)
}
