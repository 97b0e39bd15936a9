package cli

import (
	"fmt"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/rules"
)

// Models is a loaded and registered models directory.
type Models struct {
	Dir      string
	Result   *loader.Result
	Registry *rules.Registry
}

// LoadModels reads dir and registers every declaration on a fresh
// registry. The registry is left unsealed until a Molder is built on it.
func LoadModels(dir string, mode loader.LoadMode) (*Models, []error) {
	result, errs := loader.LoadDir(dir, mode)
	if len(errs) > 0 {
		return nil, errs
	}
	reg, err := result.Registry()
	if err != nil {
		return nil, []error{err}
	}
	return &Models{Dir: dir, Result: result, Registry: reg}, nil
}

// NewMolder builds a Molder over the models with the logger and evaluation
// options selected by opts.
func (o *RootOptions) NewMolder(models *Models, extra ...molder.Option) *molder.Molder {
	mopts := []molder.Option{
		molder.WithLogger(o.Logger()),
		molder.WithEvaluatorOptions(o.Config().EvaluatorOptions()),
	}
	return molder.New(models.Registry, append(mopts, extra...)...)
}

// unknownRefError reports a field or extends link naming an undeclared
// model. Such references compile to a plain object schema.
type unknownRefError struct {
	Model string
	Field string // "" for extends
	Ref   string
	Pos   loader.Position
}

func (e *unknownRefError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("model %s extends undeclared model %s", e.Model, e.Ref)
	}
	return fmt.Sprintf("field %s.%s references undeclared model %s", e.Model, e.Field, e.Ref)
}

// findUnknownRefs reports every reference of reg to an undeclared model,
// located at the declaring field (or model, for extends links).
func findUnknownRefs(decls []loader.Declaration, reg *rules.Registry) []error {
	var errs []error
	for _, ref := range reg.UnknownReferences() {
		errs = append(errs, &unknownRefError{
			Model: ref.Model,
			Field: ref.Field,
			Ref:   ref.Target,
			Pos:   declPos(decls, ref.Model, ref.Field),
		})
	}
	return errs
}

func declPos(decls []loader.Declaration, model, field string) loader.Position {
	for _, d := range decls {
		if d.Name != model {
			continue
		}
		for _, f := range d.Fields {
			if f.Name == field {
				return f.Pos
			}
		}
		return d.Pos
	}
	return loader.Position{}
}

// cycleError reports models whose compilation would recurse forever.
type cycleError struct {
	rules.Cycle
}

func (e *cycleError) Error() string {
	return e.Message
}

// findCycles reports every cycle of extends links and field references.
func findCycles(reg *rules.Registry) []error {
	var errs []error
	for _, c := range reg.AnalyzeCycles() {
		errs = append(errs, &cycleError{Cycle: c})
	}
	return errs
}

// warmErrors compiles every model and splits the joined anomalies.
func warmErrors(m *molder.Molder) []error {
	err := m.Warm()
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
