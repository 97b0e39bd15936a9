package molder

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/molder/pkg/evaluator"
	"github.com/roach88/molder/pkg/schema"
)

// Cache persists compiled documents across processes, keyed by model name
// and registry fingerprint. A miss returns ok == false.
type Cache interface {
	Load(model, fingerprint string) (s *schema.Schema, ok bool, err error)
	Store(model, fingerprint string, s *schema.Schema) error
}

// Recorder observes compilations and validations.
type Recorder interface {
	ObserveCompile(model string, d time.Duration, cached bool)
	ObserveValidation(model string, d time.Duration, violations int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCompile(string, time.Duration, bool)   {}
func (nopRecorder) ObserveValidation(string, time.Duration, int) {}

// Option configures a Molder.
type Option func(*Molder)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Molder) { m.logger = logger }
}

// WithCache sets a persistent schema cache consulted before compiling.
func WithCache(c Cache) Option {
	return func(m *Molder) { m.cache = c }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Molder) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithEvaluatorOptions overrides the evaluation behaviours. The default
// enables coercion, defaults and removal of unknown properties.
func WithEvaluatorOptions(opts evaluator.Options) Option {
	return func(m *Molder) { m.evalOpts = opts }
}
