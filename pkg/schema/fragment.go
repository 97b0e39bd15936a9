package schema

import (
	"math"
	"regexp"

	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/rules"
)

// compileField maps one merged field to its schema fragment.
//
// Kinds are applied in declaration order. NULLABLE is applied last so it
// widens whatever type the other kinds produced, and transforms wrap the
// final fragment.
func (c *Compiler) compileField(st *compileState, model string, field rules.MergedField) *Schema {
	declared, ok := field.Type()
	if !ok {
		declared = rules.Object
	}
	frag := c.typeSchema(st, declared, false)
	base := declared.Primitive

	var transforms []string
	for _, kind := range field.Kinds {
		value := field.Values[kind]
		switch kind {
		case rules.KindType, rules.KindRequired, rules.KindCustomError, rules.KindNullable:
			// handled by the model or below
		case rules.KindDescription:
			frag.Description, _ = value.(string)
		case rules.KindDefault:
			frag.Default = jsonvalue.DeepCopy(value)
			frag.HasDefault = true
		case rules.KindMin, rules.KindMax:
			applyBound(frag, model, field.Name, base, kind, value.(float64))
		case rules.KindPattern:
			requireBase(model, field.Name, kind, base, rules.PrimitiveString)
			pattern := value.(string)
			if _, err := regexp.Compile(pattern); err != nil {
				panic(rules.Anomaly(model, field.Name, kind, "invalid pattern: %v", err))
			}
			frag.Pattern = pattern
		case rules.KindEnum:
			requireBase(model, field.Name, kind, base, rules.PrimitiveString)
			frag.Enum = jsonvalue.DeepCopy(value).([]any)
		case rules.KindItem:
			requireBase(model, field.Name, kind, base, rules.PrimitiveArray)
			frag.Items = c.typeSchema(st, value.(rules.Type), false)
		case rules.KindRecord:
			requireBase(model, field.Name, kind, base, rules.PrimitiveObject)
			frag.AdditionalProperties = AdditionalSchema(c.typeSchema(st, value.(rules.Type), false))
		case rules.KindTrim, rules.KindToLowerCase, rules.KindToUpperCase:
			transforms = append(transforms, kind.TransformName())
		}
	}

	if v, ok := field.Get(rules.KindNullable); ok {
		c.applyNullable(st, frag, v.(rules.Type))
	}
	if len(transforms) > 0 {
		frag = wrapTransforms(frag, transforms)
	}
	return frag
}

// applyBound maps MIN/MAX to the keyword matching the field type.
func applyBound(frag *Schema, model, field string, base rules.Primitive, kind rules.Kind, n float64) {
	if base == rules.PrimitiveNumber {
		v := n
		if kind == rules.KindMin {
			frag.Minimum = &v
		} else {
			frag.Maximum = &v
		}
		return
	}

	var target **int
	switch base {
	case rules.PrimitiveString:
		target = &frag.MaxLength
		if kind == rules.KindMin {
			target = &frag.MinLength
		}
	case rules.PrimitiveArray:
		target = &frag.MaxItems
		if kind == rules.KindMin {
			target = &frag.MinItems
		}
	default:
		panic(rules.Anomaly(model, field, kind, "does not apply to %s", typeLabel(base)))
	}

	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		panic(rules.Anomaly(model, field, kind, "length bound must be a non-negative integer, got %s", jsonvalue.FormatNumber(n)))
	}
	i := int(n)
	*target = &i
}

// applyNullable turns type into ["null", base]. Enums also accept null.
func (c *Compiler) applyNullable(st *compileState, frag *Schema, base rules.Type) {
	name := "object"
	if base.IsPrimitive() {
		name = string(base.Primitive)
	} else if base.IsRef() {
		if t := c.typeSchema(st, base, false).Type; len(t) == 1 {
			name = t[0]
		}
	}
	if name == "null" {
		frag.Type = TypeSet{"null"}
	} else {
		frag.Type = TypeSet{"null", name}
	}
	if frag.Enum != nil {
		frag.Enum = append(frag.Enum, nil)
	}
}

func requireBase(model, field string, kind rules.Kind, got, want rules.Primitive) {
	if got != want {
		panic(rules.Anomaly(model, field, kind, "applies to %s, field is %s", want, typeLabel(got)))
	}
}

func typeLabel(p rules.Primitive) string {
	if p == "" {
		return "a model reference"
	}
	return string(p)
}
