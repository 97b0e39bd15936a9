package evaluator

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/schema"
)

// coerce tries each target type in schema order and returns the first
// successful conversion. Only scalars are coerced.
func coerce(v any, types schema.TypeSet) (any, bool) {
	for _, t := range types {
		if out, ok := coerceTo(v, t); ok {
			return out, true
		}
	}
	return nil, false
}

func coerceTo(v any, t string) (any, bool) {
	switch t {
	case "string":
		switch val := v.(type) {
		case float64:
			return jsonvalue.FormatNumber(val), true
		case bool:
			return strconv.FormatBool(val), true
		case nil:
			return "", true
		}
	case "number", "integer":
		var n float64
		switch val := v.(type) {
		case bool:
			if val {
				n = 1
			}
		case nil:
			n = 0
		case string:
			parsed, ok := parseNumeric(val)
			if !ok {
				return nil, false
			}
			n = parsed
		default:
			return nil, false
		}
		if t == "integer" && !jsonvalue.IsInteger(n) {
			return nil, false
		}
		return n, true
	case "boolean":
		switch v {
		case "false", 0.0, nil:
			return false, true
		case "true", 1.0:
			return true, true
		}
	case "null":
		switch v {
		case "", 0.0, false:
			return nil, true
		}
	}
	return nil, false
}

// parseNumeric accepts what a loose numeric comparison accepts: decimal
// and exponent forms surrounded by whitespace. A non-empty blank string is
// zero; the empty string is not numeric.
func parseNumeric(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	trimmed := strings.TrimFunc(s, isJSSpace)
	if trimmed == "" {
		return 0, true
	}
	// ParseFloat also reads hex, underscores, Inf and NaN; none of them
	// coerce.
	if strings.ContainsAny(trimmed, "_xXoObBnNpP") {
		return 0, false
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isJSSpace(r rune) bool {
	return unicode.IsSpace(r) || r == 0xFEFF
}
