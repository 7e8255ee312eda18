package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/tempo/internal/config"
	"github.com/roach88/tempo/internal/store"
)

// Version is the tempo release, set at build time with
// -ldflags "-X github.com/roach88/tempo/internal/cli.Version=...".
var Version = "dev"

// RootOptions holds global flags for all commands, plus the state
// resolved from them before any subcommand runs.
type RootOptions struct {
	ConfigPath  string
	Database    string
	Verbose     bool
	Format      string // "json" | "text"
	MetricsFile string

	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tempo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tempo",
		Short: "tempo - activity event store",
		Long: `A local store for timestamped activity events grouped into buckets,
with heartbeat coalescing and a small query language for reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write store metrics in Prometheus text format to this file")

	cmd.AddCommand(NewBucketCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewHeartbeatCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads the config file and applies it beneath the flags.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.Config = cfg

	if !cmd.Flags().Changed("format") {
		o.Format = cfg.Format
	}
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	level := cfg.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
	o.Registry = prometheus.NewRegistry()
	return nil
}

// formatter returns an OutputFormatter bound to the command's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// databasePath returns --db, or the configured path.
func (o *RootOptions) databasePath() (string, error) {
	if o.Database != "" {
		return o.Database, nil
	}
	return o.Config.DatabasePath()
}

// withStore opens the database, runs fn, closes it, and writes the
// metrics file if one was requested. Errors from fn are reported through
// the formatter and returned as ExitErrors.
func (o *RootOptions) withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store) error) error {
	f := o.formatter(cmd)

	path, err := o.databasePath()
	if err != nil {
		return f.Fail(err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return f.Fail(fmt.Errorf("create database directory: %w", err))
		}
	}

	o.Logger.Debug("opening database", "path", path)
	st, err := store.Open(path,
		store.WithLogger(o.Logger),
		store.WithRegisterer(o.Registry),
	)
	if err != nil {
		return f.Fail(err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runErr := fn(ctx, st)

	if closeErr := st.Close(); closeErr != nil {
		o.Logger.Error("error closing database", "error", closeErr)
	}
	if o.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(o.MetricsFile, o.Registry); err != nil {
			o.Logger.Error("failed to write metrics file", "path", o.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		return f.Fail(runErr)
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
