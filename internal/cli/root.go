package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/molder/internal/config"
	"github.com/roach88/molder/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string
	EnvFile  string

	cfg    *config.Config
	logger *zerolog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the molder CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "molder",
		Short: "Molder - declarative model validation",
		Long: `Molder compiles declarative model rules into JSON Schema documents and
validates payloads against them, returning a sanitized instance.

Models are declared in CUE or YAML files. Settings are read from the
environment (MOLDER_*) and an optional .env file; flags take precedence.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.init(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (default from MOLDER_LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "read settings from this .env file")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewOpenAPICommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// init loads settings and builds the logger. Logs go to stderr so they
// never mix with command output.
func (o *RootOptions) init(cmd *cobra.Command) error {
	var files []string
	if o.EnvFile != "" {
		files = append(files, o.EnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	o.cfg = &cfg

	level := o.LogLevel
	if level == "" {
		level = cfg.LogLevel
		if o.Verbose {
			level = "debug"
		}
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level, cfg.LogFormat)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build logger", err)
	}
	o.logger = &logger
	return nil
}

// Config returns the loaded settings. Commands run without the root command
// (as in tests) get the defaults.
func (o *RootOptions) Config() config.Config {
	if o.cfg == nil {
		cfg, err := config.Parse(map[string]string{})
		if err != nil {
			panic(err)
		}
		o.cfg = &cfg
	}
	return *o.cfg
}

// Logger returns the command logger, a no-op logger when none was built.
func (o *RootOptions) Logger() zerolog.Logger {
	if o.logger == nil {
		return zerolog.Nop()
	}
	return *o.logger
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
