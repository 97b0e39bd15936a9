package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/internal/openapi"
	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/rules"
)

// OpenAPIOptions holds flags for the openapi command.
type OpenAPIOptions struct {
	*RootOptions
	Title   string
	Version string
	Output  string
}

// NewOpenAPICommand creates the openapi command.
func NewOpenAPICommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpenAPIOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "openapi <models-dir>",
		Short: "Export models as an OpenAPI 3 document",
		Long: `Export every model as a component schema of an OpenAPI 3 document,
with one validate operation per model. The document is checked before
it is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "API title")
	cmd.Flags().StringVar(&opts.Version, "version", "", "API version")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default stdout)")

	return cmd
}

func runOpenAPI(opts *OpenAPIOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	models, errs := LoadModels(modelsDir, loader.LoadModeCollectAll)
	if len(errs) > 0 {
		return outputErrors(formatter, ExitCommandError, "Loading models failed", errs)
	}
	m := opts.NewMolder(models)

	doc, err := buildOpenAPI(m, openapi.Info{Title: opts.Title, Version: opts.Version})
	if err != nil {
		return outputModelError(formatter, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := doc.Validate(ctx); err != nil {
		return outputError(formatter, loader.ErrCodeGeneric, fmt.Sprintf("invalid OpenAPI document: %v", err))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return outputError(formatter, loader.ErrCodeGeneric, err.Error())
	}

	if opts.Output == "" {
		if formatter.JSON() {
			return formatter.Success(doc)
		}
		fmt.Fprintln(formatter.Writer, string(data))
		return nil
	}

	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return outputError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
	}
	if formatter.JSON() {
		return formatter.Success(map[string]any{"output": opts.Output, "models": len(doc.Components.Schemas)})
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote %d model(s) to %s\n", len(doc.Components.Schemas), opts.Output)
	return nil
}

func buildOpenAPI(m *molder.Molder, info openapi.Info) (doc *openapi3.T, err error) {
	defer rules.CatchAnomaly(&err)
	return openapi.Build(m, info)
}
