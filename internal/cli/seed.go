package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"financehub/internal/core"
	"financehub/internal/seed"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Wipe   bool
	DryRun bool
}

// SeedResult reports what a seed run wrote.
type SeedResult struct {
	UserID  string         `json:"user_id"`
	Fixture string         `json:"fixture"`
	Records int            `json:"records"`
	ByKind  map[string]int `json:"by_kind"`
	Wiped   bool           `json:"wiped"`
	DryRun  bool           `json:"dry_run"`
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed [fixture.yaml|demo]",
		Short: "Load a YAML fixture into the ledger",
		Long: `Load a YAML fixture into a user's ledger.

The fixture is validated as a whole before anything is written. A user
that already has records is refused unless --wipe is given.

Examples:
  financehubctl seed demo
  financehubctl seed ./fixtures/family.yaml --user ana --wipe
  financehubctl seed ./fixtures/family.yaml --dry-run --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "demo"
			if len(args) == 1 {
				path = args[0]
			}
			return runSeed(cmd.Context(), opts, cmd, path)
		},
	}

	cmd.Flags().BoolVar(&opts.Wipe, "wipe", false, "delete the user's existing records first")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate the fixture without writing")

	return cmd
}

func runSeed(ctx context.Context, opts *SeedOptions, cmd *cobra.Command, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	fixture, err := LoadFixture(path)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load fixture", err)
	}
	records, err := fixture.Records(seed.Options{Now: opts.today(), NewID: uuid.NewString})
	if err != nil {
		return WrapExitError(ExitFailure, "fixture rejected", err)
	}
	result := SeedResult{
		UserID:  opts.UserID,
		Fixture: path,
		Records: len(records),
		ByKind:  countByKind(records),
		DryRun:  opts.DryRun,
	}
	if opts.DryRun {
		return out.Success(result, result.text)
	}

	repo, err := opts.openRepository(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	existing, err := repo.Load(ctx, opts.UserID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read existing records", err)
	}
	if len(existing) > 0 {
		if !opts.Wipe {
			return NewExitError(ExitFailure, fmt.Sprintf("user %q already has %d records; pass --wipe to replace them", opts.UserID, len(existing)))
		}
		if err := repo.Wipe(ctx, opts.UserID); err != nil {
			return WrapExitError(ExitCommandError, "failed to wipe user", err)
		}
		result.Wiped = true
		out.VerboseLog("wiped %d records of %s", len(existing), opts.UserID)
	}

	if err := repo.Seed(ctx, opts.UserID, records); err != nil {
		return WrapExitError(ExitCommandError, "failed to write records", err)
	}
	return out.Success(result, result.text)
}

func countByKind(records []core.Record) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		out[string(r.RecordKind())]++
	}
	return out
}

func (r SeedResult) text(w io.Writer) {
	verb := "Seeded"
	if r.DryRun {
		verb = "Validated"
	}
	fmt.Fprintf(w, "%s %d records for %s from %s\n", verb, r.Records, r.UserID, r.Fixture)
	for _, kind := range slices.Sorted(maps.Keys(r.ByKind)) {
		fmt.Fprintf(w, "  %-22s %d\n", kind, r.ByKind[kind])
	}
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Yes bool
}

func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every record and audit entry of a user",
		Long: `Delete every record and audit entry of a user.

This cannot be undone; --yes is required.

Examples:
  financehubctl reset --user ana --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return NewExitError(ExitCommandError, "refusing to reset without --yes")
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
			if err := repo.Wipe(ctx, opts.UserID); err != nil {
				return WrapExitError(ExitCommandError, "failed to wipe user", err)
			}
			return opts.formatter(cmd).Success(map[string]string{"user_id": opts.UserID}, func(w io.Writer) {
				fmt.Fprintf(w, "Reset ledger of %s\n", opts.UserID)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the reset")

	return cmd
}
