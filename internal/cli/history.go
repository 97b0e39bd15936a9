package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/molder/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Model string
	Only  string // "", "valid" or "invalid"
	Limit int
}

// HistoryEntry is one recorded validation run.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	Model       string    `json:"model"`
	Fingerprint string    `json:"fingerprint"`
	InputHash   string    `json:"input_hash"`
	Valid       bool      `json:"valid"`
	Violations  int       `json:"violations"`
	Errors      string    `json:"errors,omitempty"`
	Source      string    `json:"source"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded validation runs",
		Long: `List validation runs recorded with "validate --db", newest first.

Examples:
  molder history --db runs.db
  molder history --db runs.db --model Account --only invalid --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "only runs of this model")
	cmd.Flags().StringVar(&opts.Only, "only", "", "only valid or invalid runs (valid|invalid)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs (0 for all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	filter := store.RunFilter{Model: opts.Model, Limit: opts.Limit}
	switch opts.Only {
	case "":
	case "valid", "invalid":
		valid := opts.Only == "valid"
		filter.Valid = &valid
	default:
		return outputError(formatter, ErrCodeInvalidInput, fmt.Sprintf("invalid --only %q: must be valid or invalid", opts.Only))
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return outputError(formatter, ErrCodeStoreFailed, fmt.Sprintf("opening database: %v", err))
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runs, err := st.ListRuns(ctx, filter)
	if err != nil {
		return outputError(formatter, ErrCodeStoreFailed, err.Error())
	}

	entries := make([]HistoryEntry, len(runs))
	for i, r := range runs {
		entries[i] = HistoryEntry(r)
	}

	if formatter.JSON() {
		return formatter.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tMODEL\tVALID\tVIOLATIONS\tSOURCE\tRECORDED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%d\t%s\t%s\n",
			e.Seq, e.Model, e.Valid, e.Violations, e.Source, e.RecordedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
