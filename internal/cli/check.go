package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/molder/internal/loader"
)

// CheckResult holds the outcome of checking a models directory.
type CheckResult struct {
	Valid  bool       `json:"valid"`
	Models []string   `json:"models"`
	Errors []CLIError `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <models-dir>",
		Short: "Check models without writing output",
		Long: `Check model files for errors without writing any output.

Reports every load error (syntax, unknown rule keys, malformed rule values,
duplicate models), every reference to an undeclared model, every cycle of
model references, and every compilation anomaly such as an item rule on a
non-array field.

Exit codes:
  0 - All models valid
  1 - One or more errors found
  2 - Command error (missing directory, no model files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	models, errs := LoadModels(modelsDir, loader.LoadModeCollectAll)
	if len(errs) > 0 {
		if isDirectoryError(errs) {
			ce := toCLIError(errs[0])
			return outputError(formatter, ce.Code, ce.Message)
		}
		return outputErrors(formatter, ExitFailure, "Check failed", errs)
	}
	formatter.VerboseLog("Found %d model file(s) in %s", models.Result.FileCount(), modelsDir)

	errs = findUnknownRefs(models.Result.Models, models.Registry)
	cycles := findCycles(models.Registry)
	errs = append(errs, cycles...)
	m := opts.NewMolder(models)
	if len(cycles) == 0 {
		errs = append(errs, warmErrors(m)...)
	}
	if len(errs) > 0 {
		return outputErrors(formatter, ExitFailure, "Check failed", errs)
	}

	names := models.Registry.Models()
	if formatter.JSON() {
		return formatter.Success(CheckResult{Valid: true, Models: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ All models valid (%d model(s))\n", len(names))
	return nil
}

// isDirectoryError reports whether the load failed before any file was
// parsed. Those are command errors rather than model errors.
func isDirectoryError(errs []error) bool {
	if len(errs) != 1 {
		return false
	}
	switch toCLIError(errs[0]).Code {
	case loader.ErrCodeNotFound, loader.ErrCodeNoFiles, loader.ErrCodeScanError:
		return true
	}
	return false
}
