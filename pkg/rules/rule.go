package rules

// Rule is one field-level declaration passed to ModelBuilder.Field.
type Rule struct {
	Kind  Kind
	Value any
}

func Required() Rule { return Rule{Kind: KindRequired, Value: true} }

// Nullable accepts null in addition to base.
func Nullable(base Type) Rule { return Rule{Kind: KindNullable, Value: base} }

// Min is a minimum value, length or item count depending on the field type.
func Min(n float64) Rule { return Rule{Kind: KindMin, Value: n} }

// Max is a maximum value, length or item count depending on the field type.
func Max(n float64) Rule { return Rule{Kind: KindMax, Value: n} }

func Pattern(re string) Rule { return Rule{Kind: KindPattern, Value: re} }

// Item declares the element type of an array field.
func Item(t Type) Rule { return Rule{Kind: KindItem, Value: t} }

func Enum(values ...string) Rule {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return Rule{Kind: KindEnum, Value: out}
}

// Record declares the value type of an object field used as a map.
func Record(t Type) Rule { return Rule{Kind: KindRecord, Value: t} }

func Description(text string) Rule { return Rule{Kind: KindDescription, Value: text} }

// CustomError replaces every violation reported on the field.
func CustomError(message string) Rule { return Rule{Kind: KindCustomError, Value: message} }

func Trim() Rule        { return Rule{Kind: KindTrim, Value: true} }
func ToLowerCase() Rule { return Rule{Kind: KindToLowerCase, Value: true} }
func ToUpperCase() Rule { return Rule{Kind: KindToUpperCase, Value: true} }

// Default is applied when the field is absent from the input.
func Default(v any) Rule { return Rule{Kind: KindDefault, Value: v} }
