package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/internal/store"
	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/rules"
)

// Harness is the test execution engine for one scenario.
type Harness struct {
	store  *store.Store
	molder *molder.Molder
	logger zerolog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh registry and a fresh in-memory
// database, so scenarios never observe each other. Every case is recorded
// as a validation run.
//
// Execution flow:
// 1. Load model directories and inline declarations
// 2. Validate each case and check its expectations
// 3. Evaluate scenario assertions
//
// The returned error reports infrastructure problems (unloadable models,
// database failures). Failed expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, zerolog.Nop())
}

// RunWithLogger is Run with a logger handed to the Molder.
func RunWithLogger(scenario *Scenario, logger zerolog.Logger) (*Result, error) {
	reg, err := buildRegistry(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		molder: molder.New(reg,
			molder.WithLogger(logger),
			molder.WithEvaluatorOptions(scenario.Options.Evaluator()),
		),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeCases(ctx, scenario.Cases, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Store: st, Molder: h.molder, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func buildRegistry(scenario *Scenario) (*rules.Registry, error) {
	var decls []loader.Declaration
	for _, dir := range scenario.Models {
		loaded, errs := loader.LoadDir(dir, loader.LoadModeCollectAll)
		if len(errs) > 0 {
			return nil, fmt.Errorf("failed to load models from %s: %w", dir, errors.Join(errs...))
		}
		decls = append(decls, loaded.Models...)
	}
	decls = append(decls, scenario.Declarations...)

	if errs := loader.CheckDuplicates(decls); len(errs) > 0 {
		return nil, fmt.Errorf("failed to load models: %w", errors.Join(errs...))
	}

	reg := rules.NewRegistry()
	if err := loader.Register(reg, decls); err != nil {
		return nil, fmt.Errorf("failed to register models: %w", err)
	}
	return reg, nil
}

func (h *Harness) executeCases(ctx context.Context, cases []Case, result *Result) error {
	for i, c := range cases {
		instance, vs, err := h.molder.Evaluate(c.Model, c.Input)
		if err != nil {
			// Unknown model or unusable input: a failed case, not a broken run.
			result.AddError(fmt.Sprintf("case %q: %v", c.Name, err))
			result.Cases = append(result.Cases, CaseResult{Name: c.Name, Model: c.Model, Errors: err.Error()})
			continue
		}

		cr := CaseResult{
			Name:       c.Name,
			Model:      c.Model,
			Valid:      len(vs) == 0,
			Instance:   instance,
			Errors:     molder.FormatViolations(vs),
			Violations: vs,
		}
		result.Cases = append(result.Cases, cr)

		for _, msg := range checkExpect(cr, c.Expect) {
			result.AddError(fmt.Sprintf("case %q: %s", c.Name, msg))
		}

		if err := h.record(ctx, c, cr); err != nil {
			return fmt.Errorf("case %d: failed to record run: %w", i, err)
		}
	}
	return nil
}

func (h *Harness) record(ctx context.Context, c Case, cr CaseResult) error {
	fingerprint, err := h.molder.Registry().Fingerprint(c.Model)
	if err != nil {
		return err
	}
	input, err := jsonvalue.Normalize(c.Input)
	if err != nil {
		return err
	}
	inputHash, err := jsonvalue.Hash(jsonvalue.DomainInput, input)
	if err != nil {
		return err
	}

	run, err := h.store.RecordRun(ctx, store.Run{
		Model:       c.Model,
		Fingerprint: fingerprint,
		InputHash:   inputHash,
		Valid:       cr.Valid,
		Violations:  len(cr.Violations),
		Errors:      cr.Errors,
		Source:      c.Name,
	})
	if err != nil {
		return err
	}
	h.logger.Debug().Str("case", c.Name).Str("run", run.ID).Bool("valid", cr.Valid).Msg("case recorded")
	return nil
}
