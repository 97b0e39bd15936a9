package evaluator

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/schema"
)

func typeViolation(path string, types schema.TypeSet) Violation {
	joined := strings.Join(types, ",")
	return Violation{
		Path:    path,
		Keyword: "type",
		Message: "should be " + joined,
		Params:  map[string]any{"type": joined},
	}
}

func matchesAny(v any, types schema.TypeSet) bool {
	for _, t := range types {
		if matchesType(v, t) {
			return true
		}
	}
	return false
}

func matchesType(v any, t string) bool {
	switch t {
	case "integer":
		return jsonvalue.IsInteger(v)
	case "number", "string", "boolean", "array", "object", "null":
		return jsonvalue.KindOf(v) == t
	}
	return false
}

// stringKeywords runs transform, then maxLength, minLength and pattern.
// Lengths count code points.
func (e *evaluator) stringKeywords(s *schema.Schema, str, path string, vs []Violation) (any, []Violation) {
	if len(s.Transform) > 0 {
		str = applyTransforms(str, s.Transform)
	}
	n := utf8.RuneCountInString(str)

	if s.MaxLength != nil && n > *s.MaxLength {
		vs = append(vs, limitViolation(path, "maxLength",
			fmt.Sprintf("should NOT be longer than %d characters", *s.MaxLength), *s.MaxLength))
	}
	if s.MinLength != nil && n < *s.MinLength {
		vs = append(vs, limitViolation(path, "minLength",
			fmt.Sprintf("should NOT be shorter than %d characters", *s.MinLength), *s.MinLength))
	}
	if s.Pattern != "" {
		re, err := compilePattern(s.Pattern)
		if err != nil || !re.MatchString(str) {
			vs = append(vs, Violation{
				Path:    path,
				Keyword: "pattern",
				Message: fmt.Sprintf("should match pattern %q", s.Pattern),
				Params:  map[string]any{"pattern": s.Pattern},
			})
		}
	}
	if s.Format != "" && !schema.MatchFormat(s.Format, str) {
		vs = append(vs, Violation{
			Path:    path,
			Keyword: "format",
			Message: fmt.Sprintf("should match format %q", s.Format),
			Params:  map[string]any{"format": s.Format},
		})
	}
	return str, vs
}

func numberKeywords(s *schema.Schema, n float64, path string, vs []Violation) []Violation {
	if s.Maximum != nil && n > *s.Maximum {
		vs = append(vs, boundViolation(path, "maximum", "<=", *s.Maximum, false))
	}
	if s.ExclusiveMaximum != nil && n >= *s.ExclusiveMaximum {
		vs = append(vs, boundViolation(path, "exclusiveMaximum", "<", *s.ExclusiveMaximum, true))
	}
	if s.Minimum != nil && n < *s.Minimum {
		vs = append(vs, boundViolation(path, "minimum", ">=", *s.Minimum, false))
	}
	if s.ExclusiveMinimum != nil && n <= *s.ExclusiveMinimum {
		vs = append(vs, boundViolation(path, "exclusiveMinimum", ">", *s.ExclusiveMinimum, true))
	}
	if s.MultipleOf != nil && *s.MultipleOf > 0 {
		if q := n / *s.MultipleOf; q != math.Trunc(q) {
			vs = append(vs, Violation{
				Path:    path,
				Keyword: "multipleOf",
				Message: "should be multiple of " + jsonvalue.FormatNumber(*s.MultipleOf),
				Params:  map[string]any{"multipleOf": *s.MultipleOf},
			})
		}
	}
	return vs
}

func boundViolation(path, keyword, comparison string, limit float64, exclusive bool) Violation {
	return Violation{
		Path:    path,
		Keyword: keyword,
		Message: "should be " + comparison + " " + jsonvalue.FormatNumber(limit),
		Params:  map[string]any{"comparison": comparison, "limit": limit, "exclusive": exclusive},
	}
}

// arrayKeywords runs maxItems, minItems, items (with additionalItems for
// tuples), contains, then uniqueItems. Elements are replaced in place by
// their sanitized value.
func (e *evaluator) arrayKeywords(s *schema.Schema, arr []any, path string, vs []Violation) []Violation {
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		vs = append(vs, limitViolation(path, "maxItems",
			fmt.Sprintf("should NOT have more than %d items", *s.MaxItems), *s.MaxItems))
	}
	if s.MinItems != nil && len(arr) < *s.MinItems {
		vs = append(vs, limitViolation(path, "minItems",
			fmt.Sprintf("should NOT have fewer than %d items", *s.MinItems), *s.MinItems))
	}

	item := func(sub *schema.Schema, i int) {
		out, evs := e.eval(sub, arr[i], childPath(path, strconv.Itoa(i)))
		arr[i] = out
		vs = append(vs, evs...)
	}
	switch {
	case s.TupleItems != nil:
		n := len(s.TupleItems)
		extra := s.AdditionalItems
		if extra != nil && extra.Schema == nil && !extra.Allowed && len(arr) > n {
			vs = append(vs, limitViolation(path, "additionalItems",
				fmt.Sprintf("should NOT have more than %d items", n), n))
		}
		for i := 0; i < len(arr) && i < n; i++ {
			item(s.TupleItems[i], i)
		}
		if extra != nil && extra.Schema != nil {
			for i := n; i < len(arr); i++ {
				item(extra.Schema, i)
			}
		}
	case s.Items != nil:
		for i := range arr {
			item(s.Items, i)
		}
	}

	if s.Contains != nil && !e.containsMatch(s.Contains, arr, path) {
		vs = append(vs, Violation{Path: path, Keyword: "contains", Message: "should contain a valid item", Params: map[string]any{}})
	}

	if s.UniqueItems {
		if i, j, dup := duplicate(arr); dup {
			vs = append(vs, Violation{
				Path:    path,
				Keyword: "uniqueItems",
				Message: fmt.Sprintf("should NOT have duplicate items (items ## %d and %d are identical)", j, i),
				Params:  map[string]any{"i": float64(i), "j": float64(j)},
			})
		}
	}
	return vs
}

func (e *evaluator) containsMatch(sub *schema.Schema, arr []any, path string) bool {
	for i, elem := range arr {
		if _, evs := e.eval(sub, jsonvalue.DeepCopy(elem), childPath(path, strconv.Itoa(i))); len(evs) == 0 {
			return true
		}
	}
	return false
}

// duplicate finds the last element equal to an earlier one, scanning from
// the end: i is the later index and j the earlier.
func duplicate(arr []any) (i, j int, found bool) {
	for i = len(arr) - 1; i > 0; i-- {
		for j = i - 1; j >= 0; j-- {
			if jsonvalue.Equal(arr[i], arr[j]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// objectKeywords fills defaults, then runs maxProperties, minProperties,
// required, dependencies and propertyNames, handles properties matched by
// neither properties nor patternProperties, and finally validates listed
// properties in declaration order and pattern properties. The object is
// modified in place.
func (e *evaluator) objectKeywords(s *schema.Schema, obj map[string]any, path string, vs []Violation) []Violation {
	if e.opts.UseDefaults {
		for _, prop := range s.Properties {
			if _, present := obj[prop.Name]; present || prop.Schema == nil || !prop.Schema.HasDefault {
				continue
			}
			obj[prop.Name] = jsonvalue.DeepCopy(prop.Schema.Default)
		}
	}

	if s.MaxProperties != nil && len(obj) > *s.MaxProperties {
		vs = append(vs, limitViolation(path, "maxProperties",
			fmt.Sprintf("should NOT have more than %d properties", *s.MaxProperties), *s.MaxProperties))
	}
	if s.MinProperties != nil && len(obj) < *s.MinProperties {
		vs = append(vs, limitViolation(path, "minProperties",
			fmt.Sprintf("should NOT have fewer than %d properties", *s.MinProperties), *s.MinProperties))
	}

	for _, name := range s.Required {
		if _, present := obj[name]; !present {
			vs = append(vs, Violation{
				Path:    path,
				Keyword: "required",
				Message: fmt.Sprintf("should have required property '%s'", name),
				Params:  map[string]any{"missingProperty": name},
			})
		}
	}

	vs = e.dependencies(s, obj, path, vs)

	if s.PropertyNames != nil {
		for _, key := range sortedKeys(obj) {
			if _, evs := e.eval(s.PropertyNames, key, path); len(evs) > 0 {
				vs = append(vs, evs...)
				vs = append(vs, Violation{
					Path:    path,
					Keyword: "propertyNames",
					Message: fmt.Sprintf("property name '%s' is invalid", key),
					Params:  map[string]any{"propertyName": key},
				})
			}
		}
	}

	if ap := s.AdditionalProperties; ap != nil && (ap.Schema != nil || !ap.Allowed) {
		for _, key := range sortedKeys(obj) {
			if _, listed := s.Properties.Get(key); listed || matchesPatternProperty(s, key) {
				continue
			}
			switch {
			case ap.Schema != nil:
				out, evs := e.eval(ap.Schema, obj[key], childPath(path, key))
				obj[key] = out
				vs = append(vs, evs...)
			case e.opts.RemoveAdditional:
				delete(obj, key)
			default:
				vs = append(vs, Violation{
					Path:    path,
					Keyword: "additionalProperties",
					Message: "should NOT have additional properties",
					Params:  map[string]any{"additionalProperty": key},
				})
			}
		}
	}

	for _, prop := range s.Properties {
		val, present := obj[prop.Name]
		if !present {
			continue
		}
		out, pvs := e.eval(prop.Schema, val, childPath(path, prop.Name))
		obj[prop.Name] = out
		vs = append(vs, pvs...)
	}

	for _, pp := range s.PatternProperties {
		re, err := compilePattern(pp.Name)
		if err != nil {
			continue
		}
		for _, key := range sortedKeys(obj) {
			if !re.MatchString(key) {
				continue
			}
			out, pvs := e.eval(pp.Schema, obj[key], childPath(path, key))
			obj[key] = out
			vs = append(vs, pvs...)
		}
	}
	return vs
}

func (e *evaluator) dependencies(s *schema.Schema, obj map[string]any, path string, vs []Violation) []Violation {
	for _, dep := range s.Dependencies {
		if _, present := obj[dep.Name]; !present {
			continue
		}
		if dep.Schema != nil {
			_, dvs := e.eval(dep.Schema, obj, path)
			vs = append(vs, dvs...)
			continue
		}
		for _, name := range dep.Required {
			if _, present := obj[name]; present {
				continue
			}
			vs = append(vs, Violation{
				Path:    path,
				Keyword: "dependencies",
				Message: fmt.Sprintf("should have property %s when property %s is present", name, dep.Name),
				Params: map[string]any{
					"property":        dep.Name,
					"missingProperty": name,
					"depsCount":       float64(len(dep.Required)),
					"deps":            strings.Join(dep.Required, ", "),
				},
			})
		}
	}
	return vs
}

func matchesPatternProperty(s *schema.Schema, key string) bool {
	for _, pp := range s.PatternProperties {
		if re, err := compilePattern(pp.Name); err == nil && re.MatchString(key) {
			return true
		}
	}
	return false
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func limitViolation(path, keyword, message string, limit int) Violation {
	return Violation{
		Path:    path,
		Keyword: keyword,
		Message: message,
		Params:  map[string]any{"limit": float64(limit)},
	}
}

var patternCache sync.Map // pattern → *regexp.Regexp

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}
