package harness

import "github.com/roach88/molder/pkg/evaluator"

// CaseResult is the outcome of one validation case.
type CaseResult struct {
	Name       string                `json:"name"`
	Model      string                `json:"model"`
	Valid      bool                  `json:"valid"`
	Instance   map[string]any        `json:"instance,omitempty"`
	Errors     string                `json:"errors,omitempty"`
	Violations []evaluator.Violation `json:"violations,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Cases holds one entry per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Case returns the result of the named case.
func (r *Result) Case(name string) (CaseResult, bool) {
	for _, c := range r.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return CaseResult{}, false
}
