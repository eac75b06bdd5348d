package cli

import (
	"context"
	"fmt"
	"io"

	"financehub/internal/core"
	"financehub/internal/services"

	"github.com/spf13/cobra"
)

// PostDueOptions holds flags for the post-due command.
type PostDueOptions struct {
	*RootOptions
	Date       string
	MaxCatchUp int
}

// PostDueResult reports one recurring run.
type PostDueResult struct {
	Date   core.Date `json:"date"`
	Posted int       `json:"posted"`
}

func NewPostDueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PostDueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "post-due",
		Short: "Post every scheduled occurrence that has come due",
		Long: `Run the recurring processor once: every scheduled occurrence due on or
before --date is posted as a transaction dated on its occurrence, and
the schedule advances. Running it again the same day posts nothing.

Examples:
  financehubctl post-due
  financehubctl post-due --date 2024-06-30 --max-catch-up 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPostDue(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "process as of YYYY-MM-DD (default: today)")
	cmd.Flags().IntVar(&opts.MaxCatchUp, "max-catch-up", 0, "occurrences posted per schedule (default: RECURRING_MAX_CATCHUP)")

	return cmd
}

func runPostDue(ctx context.Context, opts *PostDueOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	today := core.DateOf(opts.today())
	if opts.Date != "" {
		d, err := core.ParseDate(opts.Date)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --date", err)
		}
		today = d
	}

	repo, err := opts.openRepository(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	cfg := opts.config()
	logger := opts.logger(cmd)
	coord, err := NewLedger(ctx, cfg, &Backend{Persistence: repo, Audit: repo, SQLite: repo}, nil, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load ledger", err)
	}
	defer coord.Close()

	maxCatchUp := opts.MaxCatchUp
	if maxCatchUp <= 0 {
		maxCatchUp = cfg.RecurringMaxCatchUp
	}
	processor := services.NewRecurringProcessor(coord, services.RecurringConfig{MaxCatchUp: maxCatchUp}, logger)
	posted, err := processor.ProcessDue(ctx, today)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("posted %d occurrences before failing", posted), err)
	}

	result := PostDueResult{Date: today, Posted: posted}
	return opts.formatter(cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Posted %d scheduled occurrences as of %s\n", result.Posted, result.Date)
	})
}
