package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/molder/internal/store"
	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/molder"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Cases    []CaseResult // All case outcomes for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Cases) > 0 {
		fmt.Fprintf(&buf, "\nCases:\n")
		for i, c := range e.Cases {
			status := "valid"
			if !c.Valid {
				status = "invalid: " + c.Errors
			}
			fmt.Fprintf(&buf, "  [%d] %s (%s) %s\n", i+1, c.Name, c.Model, status)
		}
	}

	return buf.String()
}

// checkExpect compares a case outcome against its expectations and returns
// one message per mismatch.
func checkExpect(cr CaseResult, expect Expect) []string {
	var msgs []string

	if expect.Valid != nil && *expect.Valid != cr.Valid {
		msgs = append(msgs, fmt.Sprintf("expected valid=%t, got valid=%t (%s)", *expect.Valid, cr.Valid, cr.Errors))
	}

	if expect.Instance != nil {
		want, err := jsonvalue.Normalize(expect.Instance)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("expected instance is not JSON compatible: %v", err))
		} else if path, ok := matchSubset(cr.Instance, want, ""); !ok {
			msgs = append(msgs, fmt.Sprintf("instance mismatch at %q: got %v", path, cr.Instance))
		}
	}

	if expect.Errors != nil && *expect.Errors != cr.Errors {
		msgs = append(msgs, fmt.Sprintf("expected errors %q, got %q", *expect.Errors, cr.Errors))
	}

	for _, sub := range expect.ErrorsContain {
		if !strings.Contains(cr.Errors, sub) {
			msgs = append(msgs, fmt.Sprintf("expected errors to contain %q, got %q", sub, cr.Errors))
		}
	}

	for _, vm := range expect.Violations {
		if !hasViolation(cr, vm) {
			msgs = append(msgs, fmt.Sprintf("no violation matching %+v in %q", vm, cr.Errors))
		}
	}

	return msgs
}

func hasViolation(cr CaseResult, vm ViolationMatch) bool {
	for _, v := range cr.Violations {
		if vm.Path != "" && v.Path != vm.Path {
			continue
		}
		if vm.Keyword != "" && v.Keyword != vm.Keyword {
			continue
		}
		if vm.Message != "" && v.Message != vm.Message {
			continue
		}
		return true
	}
	return false
}

// matchSubset reports whether actual contains expected. Objects match when
// every expected key matches; everything else must be equal. On mismatch
// the JSON pointer of the first difference is returned.
func matchSubset(actual, expected any, path string) (string, bool) {
	want, ok := expected.(map[string]any)
	if !ok {
		return path, jsonvalue.Equal(actual, expected)
	}
	got, ok := actual.(map[string]any)
	if !ok {
		return path, false
	}
	for _, key := range jsonvalue.SortedKeys(want) {
		child := path + "/" + key
		value, exists := got[key]
		if !exists {
			return child, false
		}
		if p, ok := matchSubset(value, want[key], child); !ok {
			return p, false
		}
	}
	return "", true
}

func assertValidCount(cases []CaseResult, a Assertion) error {
	count := 0
	for _, c := range cases {
		if c.Valid {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertValidCount,
			Expected: fmt.Sprintf("%d valid cases", a.Count),
			Actual:   fmt.Sprintf("%d valid cases", count),
			Cases:    cases,
		}
	}
	return nil
}

func assertViolationCount(cases []CaseResult, a Assertion) error {
	for _, c := range cases {
		if c.Name != a.Case {
			continue
		}
		if len(c.Violations) != a.Count {
			return &AssertionError{
				Type:     AssertViolationCount,
				Expected: fmt.Sprintf("case %s reports %d violations", a.Case, a.Count),
				Actual:   fmt.Sprintf("%d violations: %s", len(c.Violations), c.Errors),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertViolationCount,
		Expected: fmt.Sprintf("case %s", a.Case),
		Actual:   "case not run",
		Cases:    cases,
	}
}

func assertStoredRuns(ctx context.Context, st *store.Store, a Assertion) error {
	runs, err := st.ListRuns(ctx, store.RunFilter{Model: a.Model, Valid: a.Valid})
	if err != nil {
		return fmt.Errorf("stored_runs: %w", err)
	}
	if len(runs) != a.Count {
		filter := "model=" + a.Model
		if a.Valid != nil {
			filter += fmt.Sprintf(" valid=%t", *a.Valid)
		}
		return &AssertionError{
			Type:     AssertStoredRuns,
			Expected: fmt.Sprintf("%d runs with %s", a.Count, filter),
			Actual:   fmt.Sprintf("%d runs", len(runs)),
		}
	}
	return nil
}

func assertSchema(m *molder.Molder, a Assertion) error {
	s, err := m.JSONSchema(a.Model)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	doc, err := s.Document()
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	want, err := jsonvalue.Normalize(a.Expect)
	if err != nil {
		return fmt.Errorf("schema: expected document: %w", err)
	}
	if path, ok := matchSubset(doc, want, ""); !ok {
		return &AssertionError{
			Type:     AssertSchema,
			Expected: fmt.Sprintf("document of %s containing %v", a.Model, a.Expect),
			Actual:   fmt.Sprintf("mismatch at %q", path),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store  *store.Store
	Molder *molder.Molder
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertValidCount:
			err = assertValidCount(result.Cases, assertion)
		case AssertViolationCount:
			err = assertViolationCount(result.Cases, assertion)
		case AssertStoredRuns:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_runs requires database context", i)
			} else {
				err = assertStoredRuns(actx.Ctx, actx.Store, assertion)
			}
		case AssertSchema:
			if actx == nil || actx.Molder == nil {
				err = fmt.Errorf("assertion[%d]: schema requires a molder", i)
			} else {
				err = assertSchema(actx.Molder, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
