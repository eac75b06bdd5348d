package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"financehub/internal/aggregate"
	"financehub/internal/core"
	"financehub/internal/ledger"
	"financehub/internal/recurrence"
	"financehub/internal/storage"

	"github.com/spf13/cobra"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Month string
}

// MonthReport is a month overview as printed by financehubctl.
type MonthReport struct {
	core.MonthOverview
	Label string     `json:"label"`
	Net   core.Money `json:"net"`
}

func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a month's income, expenses and spending by category",
		Long: `Print a month's income, expenses and spending by category, summed
from the persisted transactions.

Examples:
  financehubctl report
  financehubctl report --month 2024-05 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Month, "month", "", "month as YYYY-MM (default: current month)")

	return cmd
}

func runReport(ctx context.Context, opts *ReportOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	month := core.DateOf(opts.today()).FirstOfMonth()
	if opts.Month != "" {
		t, err := time.Parse("2006-01", opts.Month)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --month, expected YYYY-MM", err)
		}
		month = core.DateOf(t)
	}

	repo, err := opts.openRepository(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	overview, err := repo.ReadMonthOverview(ctx, opts.UserID, month.Year(), month.Month())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read month", err)
	}
	report := MonthReport{MonthOverview: overview, Label: overview.Label(), Net: overview.Net()}
	return opts.formatter(cmd).Success(report, func(w io.Writer) {
		cur := opts.Currency
		fmt.Fprintf(w, "%s\n", report.Label)
		fmt.Fprintf(w, "  Income    %s\n", report.Income.Format(cur))
		fmt.Fprintf(w, "  Expenses  %s\n", report.Expenses.Format(cur))
		fmt.Fprintf(w, "  Net       %s\n", report.Net.Format(cur))
		if len(report.ByCategory) > 0 {
			fmt.Fprintln(w, "  By category:")
			for _, c := range report.ByCategory {
				fmt.Fprintf(w, "    %-12s %s\n", c.CategoryID, c.Amount.Format(cur))
			}
		}
	})
}

// loadSnapshot reads a user's records into a detached store.
func loadSnapshot(ctx context.Context, repo *storage.SQLiteRepository, userID string) (ledger.Snapshot, error) {
	records, err := repo.Load(ctx, userID)
	if err != nil {
		return ledger.Snapshot{}, WrapExitError(ExitCommandError, "failed to load records", err)
	}
	store := ledger.NewStore()
	store.Load(records)
	return store.Snapshot(), nil
}

// UpcomingOptions holds flags for the upcoming command.
type UpcomingOptions struct {
	*RootOptions
	Days int
}

func NewUpcomingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpcomingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List scheduled bills due soon, overdue ones included",
		Long: `List every unpaid scheduled occurrence due within --days, overdue
ones included, earliest first.

Examples:
  financehubctl upcoming
  financehubctl upcoming --days 30 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Days < 0 || opts.Days > 366 {
				return NewExitError(ExitCommandError, "--days must be between 0 and 366")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			repo, err := opts.openRepository(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()
			snap, err := loadSnapshot(ctx, repo, opts.UserID)
			if err != nil {
				return err
			}
			bills := aggregate.Upcoming(&snap, core.DateOf(opts.today()), opts.Days)
			if bills == nil {
				bills = []aggregate.UpcomingBill{}
			}
			return opts.formatter(cmd).Success(bills, func(w io.Writer) {
				if len(bills) == 0 {
					fmt.Fprintln(w, "Nothing due")
					return
				}
				for _, b := range bills {
					fmt.Fprintf(w, "%s  %-24s %12s  %s\n", b.DueDate, b.Description, b.Amount.Format(opts.Currency), dueLabel(b.DaysUntil))
				}
			})
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", 7, "look-ahead window in days")

	return cmd
}

func dueLabel(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("overdue %dd", -days)
	case days == 0:
		return "today"
	}
	return fmt.Sprintf("in %dd", days)
}

// ProjectOptions holds flags for the project command.
type ProjectOptions struct {
	*RootOptions
	Count int
}

// Projection lists the next occurrences of one scheduled transaction.
type Projection struct {
	ScheduledID string      `json:"scheduled_id"`
	Description string      `json:"description"`
	Frequency   string      `json:"frequency"`
	Amount      core.Money  `json:"amount"`
	Dates       []core.Date `json:"dates"`
	Total       core.Money  `json:"total"`
}

func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProjectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "project <scheduled-id>",
		Short: "Project the next occurrences of a scheduled transaction",
		Long: `Project the next occurrences of a scheduled transaction, starting at
its next due date, and their running total.

Examples:
  financehubctl project sched-internet
  financehubctl project sched-internet --count 24 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Count < 1 {
				return NewExitError(ExitCommandError, "--count must be at least 1")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			repo, err := opts.openRepository(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()
			snap, err := loadSnapshot(ctx, repo, opts.UserID)
			if err != nil {
				return err
			}
			st, ok := snap.Scheduled[args[0]]
			if !ok {
				return NewExitError(ExitFailure, fmt.Sprintf("scheduled transaction %q not found", args[0]))
			}
			dates, err := recurrence.Occurrences(st.StartDate, st.Frequency, st.NextDueDate, opts.Count)
			if err != nil {
				return WrapExitError(ExitFailure, "cannot project schedule", err)
			}
			p := Projection{
				ScheduledID: st.ID,
				Description: st.Description,
				Frequency:   string(st.Frequency),
				Amount:      st.Amount,
				Dates:       dates,
				Total:       core.Cents(st.Amount.Cents * int64(len(dates))),
			}
			return opts.formatter(cmd).Success(p, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s, %s)\n", p.Description, p.Frequency, p.Amount.Format(opts.Currency))
				for i, d := range p.Dates {
					fmt.Fprintf(w, "  %3d  %s\n", i+1, d)
				}
				fmt.Fprintf(w, "  Total %s\n", p.Total.Format(opts.Currency))
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 12, "number of occurrences")

	return cmd
}

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Entity string
	ID     string
	Group  string
	Limit  int
}

func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the audit trail, newest first",
		Long: `Print the persisted audit trail of a user, newest first.

Examples:
  financehubctl audit --limit 20
  financehubctl audit --entity goal --id goal-trip
  financehubctl audit --group 6f1c... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.Entity == "") != (opts.ID == "") {
				return NewExitError(ExitCommandError, "--entity and --id must be given together")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			repo, err := opts.openRepository(cmd)
			if err != nil {
				return err
			}
			defer repo.Close()
			entries, err := repo.LoadAudit(ctx, opts.UserID)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read audit log", err)
			}

			trail := ledger.NewAuditLog()
			trail.Load(entries)
			switch {
			case opts.Group != "":
				entries = trail.Group(opts.Group)
			case opts.Entity != "":
				entries = trail.ForEntity(core.Kind(opts.Entity), opts.ID)
			}
			slices.Reverse(entries)
			if opts.Limit > 0 && len(entries) > opts.Limit {
				entries = entries[:opts.Limit]
			}
			if entries == nil {
				entries = []core.AuditEntry{}
			}
			return opts.formatter(cmd).Success(entries, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s  %-16s %-22s %-38s %s\n",
						e.CreatedAt.Format(time.DateTime), e.Action, e.Entity, e.EntityID, e.Details)
				}
			})
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity kind (transaction, goal, debt, ...)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "entity id")
	cmd.Flags().StringVar(&opts.Group, "group", "", "composite operation group id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum entries (0 for all)")

	return cmd
}
