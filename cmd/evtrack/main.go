package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/evtrack/internal/config"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/rpggio/evtrack/internal/sqlite"
	"github.com/rpggio/evtrack/internal/telemetry"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	dbPath   string
	logLevel string
	asOf     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "evtrack",
		Short: "Earned value tracking for task lists",
		Long: `evtrack keeps earned value projections for task lists: plan and
forecast dates, cost and schedule variance, and confidence ranges from
a Monte Carlo simulation over the historical performance.

Task lists are imported from YAML definitions and stored in SQLite. The
serve command exposes them to agents over MCP on stdio.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides EVTRACK_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug|info|warn|error (overrides EVTRACK_LOG_LEVEL)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newAddFileCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newLogCmd(opts),
		newTimeLogCmd(opts),
		newRecalcCmd(opts),
	)
	return rootCmd
}

// app is the wiring shared by every command.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sqlite.DB
	svc     *tasklist.Service
	logFile io.Closer
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if opts.dbPath != "" {
		cfg.DB.Path = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	// stdout carries JSON-RPC when serving and command output otherwise.
	logWriter := io.Writer(os.Stderr)
	a := &app{cfg: cfg}
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			a.logFile = file
			logWriter = fileWriter
		}
	}
	a.logger = slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to prepare database path: %w", err)
	}
	a.db, err = sqlite.New(cfg.DB.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := a.db.RunMigrations(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	calcOpts, err := cfg.CalculatorOptions(a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if opts.asOf != "" {
		asOf, err := config.ParseDate(opts.asOf)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid --as-of: %w", err)
		}
		calcOpts.EffectiveDate = asOf
	}

	a.svc = tasklist.NewService(
		sqlite.NewTaskListRepository(a.db),
		sqlite.NewTimeLogRepository(a.db),
		calcOpts,
		a.logger,
	)
	if err := a.svc.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if len(cfg.Files) > 0 {
		added := a.svc.AddFiles(ctx, cfg.Files)
		a.logger.Debug("configured files registered", "added", added)
	}
	return a, nil
}

// Close writes the metrics textfile, if configured, and releases the
// database and log file.
func (a *app) Close() {
	if a.logger != nil {
		if err := telemetry.WriteTextfile(a.cfg.Telemetry.TextfilePath); err != nil {
			a.logger.Warn("metrics textfile not written", "error", err)
		}
	}
	if a.svc != nil {
		a.svc.Registry().Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
