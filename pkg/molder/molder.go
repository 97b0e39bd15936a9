package molder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/molder/pkg/evaluator"
	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/rules"
	"github.com/roach88/molder/pkg/schema"
)

// Molder validates input against the models of a registry.
//
// Compiled documents are cached per model for the lifetime of the Molder.
// Two goroutines compiling the same model concurrently both do the work and
// the last store wins; compilation is pure so the results are equal.
type Molder struct {
	reg      *rules.Registry
	compiler *schema.Compiler
	schemas  sync.Map // model name → *schema.Schema

	cache    Cache
	recorder Recorder
	logger   zerolog.Logger
	evalOpts evaluator.Options
}

// Result is the outcome of InstantiateWithErrors. Errors is empty when the
// input satisfied the schema.
type Result struct {
	Instance map[string]any `json:"instance"`
	Errors   string         `json:"errors,omitempty"`
}

// New returns a Molder over reg and seals the registry.
func New(reg *rules.Registry, opts ...Option) *Molder {
	reg.Seal()
	m := &Molder{
		reg:      reg,
		compiler: schema.NewCompiler(reg),
		recorder: nopRecorder{},
		logger:   zerolog.Nop(),
		evalOpts: evaluator.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the sealed registry the Molder reads from.
func (m *Molder) Registry() *rules.Registry {
	return m.reg
}

// Validate checks input against model and returns the sanitized instance.
//
// The input is copied before evaluation; the caller's value is never
// modified. Violations are reported as a *ValidationError. Compilation
// anomalies in the model declarations panic.
func (m *Molder) Validate(model string, input any) (map[string]any, error) {
	instance, vs, err := m.run(model, input)
	if err != nil {
		return nil, err
	}
	if len(vs) > 0 {
		return nil, &ValidationError{Model: model, Violations: vs}
	}
	return instance, nil
}

// InstantiateWithErrors is Validate without failure: the instance holds the
// best-effort sanitized value, invalid values included, and Errors lists the
// violations.
func (m *Molder) InstantiateWithErrors(model string, input any) Result {
	instance, vs, err := m.run(model, input)
	if err != nil {
		return Result{Errors: err.Error()}
	}
	return Result{Instance: instance, Errors: FormatViolations(vs)}
}

// Evaluate is the structured form of InstantiateWithErrors: it returns the
// best-effort instance together with the violations. The error is non-nil
// only when the model is unknown or the input is not JSON compatible.
func (m *Molder) Evaluate(model string, input any) (map[string]any, []evaluator.Violation, error) {
	return m.run(model, input)
}

// JSONSchema returns a copy of the compiled document of model.
func (m *Molder) JSONSchema(model string) (*schema.Schema, error) {
	s, err := m.schemaFor(model)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// Description returns the model-level description, "" if none.
func (m *Molder) Description(model string) string {
	return m.reg.Description(model)
}

// Warm compiles every declared model. Anomalies are returned, joined,
// instead of panicking.
func (m *Molder) Warm() error {
	var errs []error
	for _, model := range m.reg.Models() {
		if err := m.warmOne(model); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Molder) warmOne(model string) (err error) {
	defer rules.CatchAnomaly(&err)
	_, err = m.schemaFor(model)
	return err
}

func (m *Molder) run(model string, input any) (map[string]any, []evaluator.Violation, error) {
	s, err := m.schemaFor(model)
	if err != nil {
		return nil, nil, err
	}

	// Normalize rebuilds every container, so evaluation never touches input.
	value, err := jsonvalue.Normalize(input)
	if err != nil {
		return nil, nil, fmt.Errorf("validate %s: %w", model, err)
	}

	start := time.Now()
	out, vs := evaluator.Evaluate(s, value, m.evalOpts)
	m.recorder.ObserveValidation(model, time.Since(start), len(vs))
	if len(vs) > 0 {
		m.logger.Debug().
			Str("model", model).
			Int("violations", len(vs)).
			Msg("validation failed")
	}

	instance, _ := out.(map[string]any)
	return instance, vs, nil
}

// schemaFor returns the cached document of model, compiling it on first use.
func (m *Molder) schemaFor(model string) (*schema.Schema, error) {
	if s, ok := m.schemas.Load(model); ok {
		return s.(*schema.Schema), nil
	}
	if !m.reg.Has(model) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	start := time.Now()
	var fingerprint string
	if m.cache != nil {
		fp, err := m.reg.Fingerprint(model)
		if err != nil {
			return nil, err
		}
		fingerprint = fp

		s, ok, err := m.cache.Load(model, fingerprint)
		if err != nil {
			m.logger.Warn().Err(err).Str("model", model).Msg("schema cache load failed")
		} else if ok {
			m.schemas.Store(model, s)
			m.recorder.ObserveCompile(model, time.Since(start), true)
			m.logger.Debug().Str("model", model).Str("fingerprint", fingerprint).Msg("schema loaded from cache")
			return s, nil
		}
	}

	s := m.compiler.Compile(model)
	elapsed := time.Since(start)
	m.schemas.Store(model, s)
	m.recorder.ObserveCompile(model, elapsed, false)
	m.logger.Debug().
		Str("model", model).
		Str("fingerprint", fingerprint).
		Dur("duration", elapsed).
		Msg("schema compiled")

	if m.cache != nil {
		if err := m.cache.Store(model, fingerprint, s); err != nil {
			m.logger.Warn().Err(err).Str("model", model).Msg("schema cache store failed")
		}
	}
	return s, nil
}
