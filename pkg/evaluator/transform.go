package evaluator

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// applyTransforms runs the transform keyword on a string, in order.
// Unknown transform names are ignored.
func applyTransforms(s string, names []string) string {
	for _, name := range names {
		switch name {
		case "trim":
			s = strings.TrimFunc(s, isJSSpace)
		case "trimStart", "trimLeft":
			s = strings.TrimLeftFunc(s, isJSSpace)
		case "trimEnd", "trimRight":
			s = strings.TrimRightFunc(s, isJSSpace)
		case "toLowerCase":
			// Casers hold state; one per call keeps evaluation goroutine safe.
			s = cases.Lower(language.Und).String(s)
		case "toUpperCase":
			s = cases.Upper(language.Und).String(s)
		}
	}
	return s
}
