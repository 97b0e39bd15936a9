package molder

import (
	"errors"
	"strings"

	"github.com/roach88/molder/pkg/evaluator"
)

// ErrUnknownModel is returned for model names never declared in the registry.
var ErrUnknownModel = errors.New("unknown model")

// ValidationError reports every violation found while validating one input.
type ValidationError struct {
	Model      string
	Violations []evaluator.Violation
}

// Error renders "error while validating <Model>: data<path> <message>, ...".
func (e *ValidationError) Error() string {
	return "error while validating " + e.Model + ": " + FormatViolations(e.Violations)
}

// Fields groups violation messages by top-level field. Violations raised on
// the root object are keyed by the property they name (required,
// additionalProperties) or by "" when they name none.
func (e *ValidationError) Fields() map[string][]string {
	out := make(map[string][]string)
	for _, v := range e.Violations {
		field := topLevelField(v)
		out[field] = append(out[field], v.Message)
	}
	return out
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FormatViolations renders violations as "data<path> <message>" joined by ", ".
func FormatViolations(vs []evaluator.Violation) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func topLevelField(v evaluator.Violation) string {
	if v.Path == "" {
		for _, key := range []string{"missingProperty", "additionalProperty"} {
			if name, ok := v.Params[key].(string); ok {
				return name
			}
		}
		return ""
	}
	token := strings.TrimPrefix(v.Path, "/")
	if i := strings.IndexByte(token, '/'); i >= 0 {
		token = token[:i]
	}
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}
