package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// annotations are keywords with no effect on validation.
var annotations = map[string]bool{
	"$schema":          true,
	"$id":              true,
	"$comment":         true,
	"examples":         true,
	"readOnly":         true,
	"writeOnly":        true,
	"contentMediaType": true,
	"contentEncoding":  true,
}

const definitionsPrefix = "#/definitions/"

// Check reports the first keyword of s the evaluator cannot honour: an
// unsupported keyword, an unknown format, an invalid pattern, or a $ref
// that is not "#/definitions/<name>" of an enclosing document. The error
// names the keyword's JSON pointer.
func (s *Schema) Check() error {
	return s.check("#", nil)
}

func (s *Schema) check(at string, scopes []Properties) error {
	if s == nil {
		return nil
	}
	if s.Definitions != nil {
		scopes = append(scopes, s.Definitions)
	}

	for key := range s.Extra {
		if !annotations[key] && !strings.HasPrefix(key, "x-") {
			return fmt.Errorf("%s: unsupported keyword %q", at, key)
		}
	}
	if s.Ref != "" {
		name, ok := strings.CutPrefix(s.Ref, definitionsPrefix)
		if !ok || strings.Contains(name, "/") {
			return fmt.Errorf("%s: unsupported $ref %q, only %s<name> is supported", at, s.Ref, definitionsPrefix)
		}
		if _, found := lookupDefinition(scopes, UnescapeToken(name)); !found {
			return fmt.Errorf("%s: $ref %q has no definition", at, s.Ref)
		}
	}
	if s.Format != "" && !KnownFormat(s.Format) {
		return fmt.Errorf("%s: unknown format %q", at, s.Format)
	}
	if s.Pattern != "" {
		if _, err := regexp.Compile(s.Pattern); err != nil {
			return fmt.Errorf("%s: invalid pattern: %w", at, err)
		}
	}
	for _, p := range s.PatternProperties {
		if _, err := regexp.Compile(p.Name); err != nil {
			return fmt.Errorf("%s/patternProperties: invalid pattern: %w", at, err)
		}
	}
	if s.MultipleOf != nil && *s.MultipleOf <= 0 {
		return fmt.Errorf("%s: multipleOf must be greater than 0", at)
	}

	for _, sub := range s.children(at) {
		if err := sub.schema.check(sub.at, scopes); err != nil {
			return err
		}
	}
	return nil
}

type located struct {
	at     string
	schema *Schema
}

// children lists every subschema of s with its pointer.
func (s *Schema) children(at string) []located {
	var out []located
	one := func(key string, sub *Schema) {
		if sub != nil {
			out = append(out, located{at + "/" + key, sub})
		}
	}
	list := func(key string, subs []*Schema) {
		for i, sub := range subs {
			one(fmt.Sprintf("%s/%d", key, i), sub)
		}
	}
	named := func(key string, props Properties) {
		for _, p := range props {
			one(key+"/"+EscapeToken(p.Name), p.Schema)
		}
	}

	named("definitions", s.Definitions)
	named("properties", s.Properties)
	named("patternProperties", s.PatternProperties)
	if s.AdditionalProperties != nil {
		one("additionalProperties", s.AdditionalProperties.Schema)
	}
	one("propertyNames", s.PropertyNames)
	for _, d := range s.Dependencies {
		one("dependencies/"+EscapeToken(d.Name), d.Schema)
	}
	one("items", s.Items)
	list("items", s.TupleItems)
	if s.AdditionalItems != nil {
		one("additionalItems", s.AdditionalItems.Schema)
	}
	one("contains", s.Contains)
	list("allOf", s.AllOf)
	list("anyOf", s.AnyOf)
	list("oneOf", s.OneOf)
	one("not", s.Not)
	one("if", s.If)
	one("then", s.Then)
	one("else", s.Else)
	return out
}

// ResolveRef returns the definition a "#/definitions/<name>" reference
// points at, searching scopes from the innermost outwards.
func ResolveRef(ref string, scopes []Properties) (*Schema, bool) {
	name, ok := strings.CutPrefix(ref, definitionsPrefix)
	if !ok {
		return nil, false
	}
	return lookupDefinition(scopes, UnescapeToken(name))
}

func lookupDefinition(scopes []Properties, name string) (*Schema, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if def, ok := scopes[i].Get(name); ok {
			return def, true
		}
	}
	return nil, false
}

// EscapeToken escapes a JSON pointer reference token.
func EscapeToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}
