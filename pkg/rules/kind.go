package rules

// Kind is a rule kind. Its string value is the wire name shared by the
// registry, the schema compiler and the declaration loaders.
type Kind string

const (
	KindType         Kind = "type"
	KindRequired     Kind = "required"
	KindNullable     Kind = "nullable"
	KindMin          Kind = "min"
	KindMax          Kind = "max"
	KindPattern      Kind = "pattern"
	KindItem         Kind = "item"
	KindEnum         Kind = "enum"
	KindRecord       Kind = "record"
	KindDescription  Kind = "description"
	KindCustomError  Kind = "custom-error"
	KindCustomSchema Kind = "custom-schema"
	KindTrim         Kind = "trim"
	KindToLowerCase  Kind = "to-lowercase"
	KindToUpperCase  Kind = "to-uppercase"
	KindDefault      Kind = "default"
)

var allKinds = []Kind{
	KindType, KindRequired, KindNullable, KindMin, KindMax, KindPattern,
	KindItem, KindEnum, KindRecord, KindDescription, KindCustomError,
	KindCustomSchema, KindTrim, KindToLowerCase, KindToUpperCase, KindDefault,
}

// Kinds returns every rule kind in wire order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind returns the Kind for a wire name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// IsTransform reports whether k mutates a string before validation.
func (k Kind) IsTransform() bool {
	return k == KindTrim || k == KindToLowerCase || k == KindToUpperCase
}

// TransformName returns the evaluator keyword value for a transform kind
// ("trim", "toLowerCase", "toUpperCase"), or "" for structural kinds.
func (k Kind) TransformName() string {
	switch k {
	case KindTrim:
		return "trim"
	case KindToLowerCase:
		return "toLowerCase"
	case KindToUpperCase:
		return "toUpperCase"
	}
	return ""
}

// typeValued reports whether the kind's value is a Type.
func (k Kind) typeValued() bool {
	return k == KindType || k == KindNullable || k == KindItem || k == KindRecord
}
