package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"financehub/internal/config"
	"financehub/internal/log"
	"financehub/internal/storage"

	"github.com/spf13/cobra"
)

// RootOptions holds the global flags of financehubctl.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	UserID   string
	Currency string

	// Config supplies the defaults the flags override.
	Config *config.Config
	// Now is the clock used to resolve "today"; nil means time.Now.
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of financehubctl. Flag defaults
// come from the environment, like the server's.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: config.Load()}

	cmd := &cobra.Command{
		Use:   "financehubctl",
		Short: "financehub maintenance commands",
		Long:  "Seed, inspect and maintain the financehub SQLite ledger of a user.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", opts.Config.SQLiteDBPath, "path to the SQLite database")
	cmd.PersistentFlags().StringVar(&opts.UserID, "user", opts.Config.UserID, "ledger owner")
	cmd.PersistentFlags().StringVar(&opts.Currency, "currency", opts.Config.Currency, "ISO currency used to print amounts")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewUpcomingCommand(opts))
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewPostDueCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) today() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *RootOptions) logger(cmd *cobra.Command) *log.Logger {
	if !o.Verbose {
		return log.Discard()
	}
	return log.New(log.Config{Level: slog.LevelDebug, Output: cmd.ErrOrStderr(), Component: log.ComponentCLI})
}

// config returns the loaded configuration with the flag overrides applied.
func (o *RootOptions) config() *config.Config {
	var cfg config.Config
	if o.Config != nil {
		cfg = *o.Config
	} else {
		cfg = *config.Load()
	}
	cfg.DataBackend = "sqlite"
	cfg.SQLiteDBPath = o.Database
	cfg.UserID = o.UserID
	if cfg.MutationTimeout <= 0 {
		cfg.MutationTimeout = 10 * time.Second
	}
	return &cfg
}

func (o *RootOptions) openRepository(cmd *cobra.Command) (*storage.SQLiteRepository, error) {
	if o.Database == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set SQLITE_DB_PATH")
	}
	repo, err := storage.NewSQLiteRepository(o.Database, o.logger(cmd))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return repo, nil
}

// Execute runs financehubctl and returns the process exit code.
func Execute() int {
	LoadEnvFile()
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
