package evaluator

import (
	"github.com/roach88/molder/pkg/schema"
)

// applyErrorMessage rewrites the violations raised under a schema carrying
// the errorMessage keyword.
//
// For each property message, every violation whose path is exactly
// <path>/<field> is removed and one violation with the custom message is
// appended in its place. A general message then replaces whatever is left.
func applyErrorMessage(em *schema.ErrorMessage, path string, vs []Violation) []Violation {
	for _, m := range em.Properties {
		target := childPath(path, m.Field)

		var kept, replaced []Violation
		for _, v := range vs {
			if v.Path == target {
				replaced = append(replaced, v)
			} else {
				kept = append(kept, v)
			}
		}
		if len(replaced) == 0 {
			continue
		}
		vs = append(kept, Violation{
			Path:    target,
			Keyword: "errorMessage",
			Message: m.Text,
			Params:  map[string]any{"errors": replaced},
		})
	}

	if em.General != "" && len(vs) > 0 {
		vs = []Violation{{
			Path:    path,
			Keyword: "errorMessage",
			Message: em.General,
			Params:  map[string]any{"errors": vs},
		}}
	}
	return vs
}
