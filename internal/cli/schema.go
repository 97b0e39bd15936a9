package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/rules"
	"github.com/roach88/molder/pkg/schema"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <models-dir> <model>",
		Short: "Print the JSON Schema document of a model",
		Long: `Print the compiled JSON Schema document of one model.

Text output is the bare document. JSON output wraps it in the standard
response envelope.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runSchema(opts *RootOptions, modelsDir, model string, cmd *cobra.Command) error {
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
	doc, err := compileOne(m, model)
	if err != nil {
		return outputModelError(formatter, err)
	}

	if formatter.JSON() {
		return formatter.Success(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return outputError(formatter, loader.ErrCodeGeneric, err.Error())
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}

// compileOne returns the document of model, recovering anomalies.
func compileOne(m *molder.Molder, model string) (doc *schema.Schema, err error) {
	defer rules.CatchAnomaly(&err)
	return m.JSONSchema(model)
}

// outputModelError reports an unknown model or a compilation anomaly.
func outputModelError(f *OutputFormatter, err error) error {
	if errors.Is(err, molder.ErrUnknownModel) {
		return outputError(f, ErrCodeUnknownModel, err.Error())
	}
	ce := toCLIError(err)
	return outputError(f, ce.Code, ce.Message)
}
