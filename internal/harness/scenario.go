package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/pkg/evaluator"
)

// Scenario is a set of validation cases run against one set of models.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Models lists directories of model files to load. Paths are relative
	// to the scenario file.
	Models []string `yaml:"models,omitempty"`

	// Model holds inline declarations, in the YAML model file format.
	Model yaml.Node `yaml:"model,omitempty"`

	// Options overrides the evaluation behaviours. Nil keeps the defaults.
	Options *Options `yaml:"options,omitempty"`

	// Cases are validated in order.
	Cases []Case `yaml:"cases"`

	// Assertions are checked after every case ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Declarations are the inline models, decoded by LoadScenario or set
	// directly by callers building scenarios in code.
	Declarations []loader.Declaration `yaml:"-"`
}

// Options mirrors evaluator.Options; unset fields keep their default.
type Options struct {
	CoerceTypes      *bool `yaml:"coerce_types,omitempty"`
	UseDefaults      *bool `yaml:"use_defaults,omitempty"`
	RemoveAdditional *bool `yaml:"remove_additional,omitempty"`
}

// Evaluator returns the evaluator options selected by o.
func (o *Options) Evaluator() evaluator.Options {
	opts := evaluator.DefaultOptions()
	if o == nil {
		return opts
	}
	if o.CoerceTypes != nil {
		opts.CoerceTypes = *o.CoerceTypes
	}
	if o.UseDefaults != nil {
		opts.UseDefaults = *o.UseDefaults
	}
	if o.RemoveAdditional != nil {
		opts.RemoveAdditional = *o.RemoveAdditional
	}
	return opts
}

// Case validates one input against one model.
type Case struct {
	Name   string `yaml:"name"`
	Model  string `yaml:"model"`
	Input  any    `yaml:"input"`
	Expect Expect `yaml:"expect"`
}

// Expect describes the expected outcome of a case. Unset fields are not
// checked.
type Expect struct {
	// Valid is the expected validity.
	Valid *bool `yaml:"valid,omitempty"`

	// Instance is matched as a subset of the produced instance.
	Instance map[string]any `yaml:"instance,omitempty"`

	// Errors is the exact rendered error report ("" for none).
	Errors *string `yaml:"errors,omitempty"`

	// ErrorsContain lists substrings of the rendered error report.
	ErrorsContain []string `yaml:"errors_contain,omitempty"`

	// Violations must each match at least one reported violation.
	Violations []ViolationMatch `yaml:"violations,omitempty"`
}

// ViolationMatch selects violations. Empty fields match anything.
type ViolationMatch struct {
	Path    string `yaml:"path,omitempty"`
	Keyword string `yaml:"keyword,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Assertion validates the scenario as a whole.
type Assertion struct {
	// Type specifies the assertion type:
	// - "valid_count": exactly Count cases are valid
	// - "violation_count": case Case reports exactly Count violations
	// - "stored_runs": the run log holds Count runs of Model (and Valid)
	// - "schema": the compiled document of Model contains Expect
	Type string `yaml:"type"`

	Case   string         `yaml:"case,omitempty"`
	Model  string         `yaml:"model,omitempty"`
	Valid  *bool          `yaml:"valid,omitempty"`
	Count  int            `yaml:"count,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertValidCount     = "valid_count"
	AssertViolationCount = "violation_count"
	AssertStoredRuns     = "stored_runs"
	AssertSchema         = "schema"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Model directories are resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "case:" vs "cases:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, dir := range scenario.Models {
		if !filepath.IsAbs(dir) {
			scenario.Models[i] = filepath.Join(base, dir)
		}
	}

	if scenario.Model.Kind != 0 {
		decls, errs := loader.DecodeYAML(data, path, loader.LoadModeCollectAll)
		if len(errs) > 0 {
			return nil, fmt.Errorf("invalid inline models: %w", errors.Join(errs...))
		}
		scenario.Declarations = decls
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns every *.yaml and *.yml file under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "models" {
				// Model directories referenced by scenarios are not scenarios.
				return filepath.SkipDir
			}
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func validateScenario(s *Scenario) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Models) == 0 && len(s.Declarations) == 0 {
		return fmt.Errorf("models or an inline model section is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("at least one case is required")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		seen[c.Name] = true
		if c.Model == "" {
			return fmt.Errorf("cases[%d]: model is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion, cases map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertValidCount:
	case AssertViolationCount:
		if !cases[a.Case] {
			return fmt.Errorf("assertions[%d]: unknown case %q for violation_count", index, a.Case)
		}
	case AssertStoredRuns:
		if a.Model == "" {
			return fmt.Errorf("assertions[%d]: model is required for stored_runs", index)
		}
	case AssertSchema:
		if a.Model == "" {
			return fmt.Errorf("assertions[%d]: model is required for schema", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for schema", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
