package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/internal/payload"
	"github.com/roach88/molder/internal/store"
	"github.com/roach88/molder/pkg/evaluator"
	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/rules"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	DB string // record the run in this database
}

// ValidationResult holds the outcome of validating one payload.
type ValidationResult struct {
	Model    string              `json:"model"`
	Valid    bool                `json:"valid"`
	Count    int                 `json:"violations"`
	Instance map[string]any      `json:"instance"`
	Errors   string              `json:"errors,omitempty"`
	Fields   map[string][]string `json:"fields,omitempty"`
	RunID    string              `json:"run_id,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <models-dir> <model> <input.json|->",
		Short: "Validate a JSON payload against a model",
		Long: `Validate a JSON payload against a model and print the sanitized instance.

The payload is read from a file, or from stdin when the path is "-".
Defaults are filled in, unknown keys removed and scalars coerced as
configured by MOLDER_USE_DEFAULTS, MOLDER_REMOVE_ADDITIONAL and
MOLDER_COERCE_TYPES.

Exit codes:
  0 - Payload valid
  1 - Payload invalid
  2 - Command error (unknown model, unreadable payload, broken models)

Examples:
  molder validate ./models Account account.json
  cat account.json | molder validate ./models Account -
  molder validate ./models Account account.json --db runs.db`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "record the run in this SQLite database")

	return cmd
}

func runValidate(opts *ValidateOptions, modelsDir, model, inputPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	models, errs := LoadModels(modelsDir, loader.LoadModeFailFast)
	if len(errs) > 0 {
		return outputErrors(formatter, ExitCommandError, "Loading models failed", errs)
	}
	m := opts.NewMolder(models)
	if !m.Registry().Has(model) {
		return outputError(formatter, ErrCodeUnknownModel, fmt.Sprintf("%v: %s", molder.ErrUnknownModel, model))
	}

	input, err := readInput(cmd.InOrStdin(), inputPath, opts.Config().MaxBodyBytes)
	if err != nil {
		return outputError(formatter, ErrCodeInvalidInput, err.Error())
	}

	instance, vs, err := evaluateOne(m, model, input)
	if err != nil {
		return outputModelError(formatter, err)
	}

	result := ValidationResult{Model: model, Valid: len(vs) == 0, Count: len(vs), Instance: instance}
	if len(vs) > 0 {
		verr := &molder.ValidationError{Model: model, Violations: vs}
		result.Errors = molder.FormatViolations(vs)
		result.Fields = verr.Fields()
	}
	formatter.VerboseLog("Validated %s: %d violation(s)", model, len(vs))

	if opts.DB != "" {
		run, err := recordRun(cmd.Context(), opts.DB, m, model, input, result)
		if err != nil {
			return outputError(formatter, ErrCodeStoreFailed, err.Error())
		}
		result.RunID = run.ID
		formatter.VerboseLog("Recorded run %s (seq %d)", run.ID, run.Seq)
	}

	return outputValidation(formatter, result)
}

// readInput reads and decodes the payload at path, stdin for "-".
func readInput(stdin io.Reader, path string, limit int64) (any, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		defer f.Close()
		r = f
	}
	v, err := payload.ReadFrom(r, limit)
	if err != nil {
		if errors.Is(err, payload.ErrTooLarge) {
			return nil, fmt.Errorf("input exceeds %d bytes", limit)
		}
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	return v, nil
}

// evaluateOne validates input, recovering anomalies.
func evaluateOne(m *molder.Molder, model string, input any) (instance map[string]any, vs []evaluator.Violation, err error) {
	defer rules.CatchAnomaly(&err)
	return m.Evaluate(model, input)
}

// recordRun stores the outcome of one validation in the database at path.
func recordRun(ctx context.Context, path string, m *molder.Molder, model string, input any, result ValidationResult) (store.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(path)
	if err != nil {
		return store.Run{}, fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	fp, err := m.Registry().Fingerprint(model)
	if err != nil {
		return store.Run{}, err
	}
	hash, err := jsonvalue.Hash(jsonvalue.DomainInput, input)
	if err != nil {
		return store.Run{}, err
	}
	return st.RecordRun(ctx, store.Run{
		Model:       model,
		Fingerprint: fp,
		InputHash:   hash,
		Valid:       result.Valid,
		Violations:  result.Count,
		Errors:      result.Errors,
		Source:      "cli",
	})
}

func outputValidation(f *OutputFormatter, result ValidationResult) error {
	if f.JSON() {
		if result.Valid {
			return f.Success(result)
		}
		if err := f.Failure(ErrCodeInvalid, "error while validating "+result.Model+": "+result.Errors, result); err != nil {
			return err
		}
		return reportedExit(ExitFailure, "payload invalid")
	}

	if result.Valid {
		fmt.Fprintf(f.Writer, "✓ %s is valid\n\n", result.Model)
	} else {
		fmt.Fprintf(f.Writer, "✗ error while validating %s: %s\n\n", result.Model, result.Errors)
	}
	var instance any
	if result.Instance != nil {
		instance = result.Instance
	}
	data, err := jsonvalue.MarshalCanonical(instance)
	if err != nil {
		return err
	}
	fmt.Fprintln(f.Writer, string(data))

	if !result.Valid {
		return reportedExit(ExitFailure, "payload invalid")
	}
	return nil
}
