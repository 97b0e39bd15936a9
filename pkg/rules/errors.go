package rules

import (
	"errors"
	"fmt"
)

// CompilationAnomaly is a static defect in model declarations: an extends
// cycle, a recursive field reference, a rule kind that does not apply to the
// field type, or a malformed schema override.
//
// Anomalies are raised by panic at registration or first compilation.
// CatchAnomaly converts them back into errors for tooling.
type CompilationAnomaly struct {
	Model  string
	Field  string
	Kind   Kind
	Reason string
}

func (e *CompilationAnomaly) Error() string {
	loc := e.Model
	if e.Field != "" {
		loc += "." + e.Field
	}
	if e.Kind != "" {
		loc += " (" + string(e.Kind) + ")"
	}
	return fmt.Sprintf("compilation anomaly in %s: %s", loc, e.Reason)
}

// Anomaly builds a CompilationAnomaly with a formatted reason.
func Anomaly(model, field string, kind Kind, format string, args ...any) *CompilationAnomaly {
	return &CompilationAnomaly{
		Model:  model,
		Field:  field,
		Kind:   kind,
		Reason: fmt.Sprintf(format, args...),
	}
}

// IsCompilationAnomaly reports whether err wraps a CompilationAnomaly.
func IsCompilationAnomaly(err error) bool {
	var a *CompilationAnomaly
	return errors.As(err, &a)
}

// CatchAnomaly recovers a panicking *CompilationAnomaly into *errp.
// Other panics propagate. Use as `defer rules.CatchAnomaly(&err)`.
func CatchAnomaly(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if a, ok := r.(*CompilationAnomaly); ok {
		*errp = a
		return
	}
	panic(r)
}
