package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/internal/store"
	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	Cache  string // schema cache database
}

// CompiledModel is one compiled document with its identity.
type CompiledModel struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Fingerprint string         `json:"fingerprint"`
	Schema      *schema.Schema `json:"schema"`
}

// CompilationResult holds every compiled model, in declaration order.
type CompilationResult struct {
	Models []CompiledModel `json:"models"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <models-dir>",
		Short: "Compile models to JSON Schema documents",
		Long: `Compile every model declared in a directory to its JSON Schema document.

With --output the documents are written to a file as a JSON object keyed by
model name. With --cache (or MOLDER_CACHE_PATH) the documents are stored in
the SQLite schema cache, keyed by model fingerprint.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "schema cache database (default from MOLDER_CACHE_PATH)")

	return cmd
}

func runCompile(opts *CompileOptions, modelsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	models, errs := LoadModels(modelsDir, loader.LoadModeCollectAll)
	if len(errs) > 0 {
		return outputErrors(formatter, ExitCommandError, "Compilation failed", errs)
	}
	formatter.VerboseLog("Found %d model file(s) in %s", models.Result.FileCount(), modelsDir)

	var extra []molder.Option
	cachePath := opts.Cache
	if cachePath == "" {
		cachePath = opts.Config().CachePath
	}
	if cachePath != "" {
		st, err := store.Open(cachePath)
		if err != nil {
			return outputError(formatter, ErrCodeStoreFailed, fmt.Sprintf("opening schema cache: %v", err))
		}
		defer st.Close()
		extra = append(extra, molder.WithCache(st.Cache()))
		formatter.VerboseLog("Using schema cache %s", cachePath)
	}

	m := opts.NewMolder(models, extra...)
	if errs := warmErrors(m); len(errs) > 0 {
		return outputErrors(formatter, ExitCommandError, "Compilation failed", errs)
	}

	result, err := collectCompiled(m)
	if err != nil {
		return outputError(formatter, loader.ErrCodeGeneric, err.Error())
	}
	for _, cm := range result.Models {
		formatter.VerboseLog("Compiled model: %s (%s)", cm.Name, cm.Fingerprint[:12])
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeDocuments(result, opts.Output); err != nil {
			return outputError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// collectCompiled reads back every compiled document of a warmed Molder.
func collectCompiled(m *molder.Molder) (*CompilationResult, error) {
	result := &CompilationResult{Models: []CompiledModel{}}
	for _, name := range m.Registry().Models() {
		doc, err := m.JSONSchema(name)
		if err != nil {
			return nil, err
		}
		fp, err := m.Registry().Fingerprint(name)
		if err != nil {
			return nil, err
		}
		result.Models = append(result.Models, CompiledModel{
			Name:        name,
			Description: m.Description(name),
			Fingerprint: fp,
			Schema:      doc,
		})
	}
	return result, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d model(s)\n\n", len(result.Models))

	for _, cm := range result.Models {
		required := len(cm.Schema.Required)
		fmt.Fprintf(formatter.Writer, "  %s: %d field(s), %d required\n",
			cm.Name, len(cm.Schema.Properties), required)
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote schemas to %s\n", outputFile)
	}

	return nil
}

// writeDocuments writes the documents as one JSON object keyed by model.
func writeDocuments(result *CompilationResult, filename string) error {
	docs := make(map[string]*schema.Schema, len(result.Models))
	for _, cm := range result.Models {
		docs[cm.Name] = cm.Schema
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schemas: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
