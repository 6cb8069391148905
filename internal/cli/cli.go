package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pfrederiksen/tablescrape/internal/config"
	"github.com/pfrederiksen/tablescrape/internal/grid"
	"github.com/pfrederiksen/tablescrape/internal/logger"
	"github.com/pfrederiksen/tablescrape/internal/output"
	"github.com/pfrederiksen/tablescrape/internal/scraper"
	"github.com/pfrederiksen/tablescrape/internal/storage"
	"github.com/pfrederiksen/tablescrape/internal/table"
)

const (
	ExitSuccess       = 0
	ExitError         = 1
	ExitNetwork       = 3
	ExitParse         = 4
	ExitKey           = 5
	ExitShapeMismatch = 6
)

// app holds the state shared by all commands of one invocation
type app struct {
	configPath string
	format     string
	query      string
	logLevel   string
	dataDir    string
	verbose    bool

	cfg     *config.Config
	log     *logger.Logger
	metrics *logger.Metrics
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "tablescrape",
		Short: "Extract HTML tables into grids",
		Long: `A CLI tool to extract HTML tables from web pages into grids.
Merged cells (rowspan/colspan) are copied into every position they cover,
and missing values in one grid can be filled from another by a key column.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.reportMetrics,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default ~/.config/tablescrape/config.yaml)")
	flags.StringVar(&a.format, "format", "", "Output format: text, table, json, ndjson, yaml, csv or markdown (default table on a terminal, json otherwise)")
	flags.StringVar(&a.query, "query", "", "jq expression applied to the records of structured output")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (default warn)")
	flags.StringVar(&a.dataDir, "data-dir", "", "Data directory for snapshots (default "+storage.DefaultDataDir+")")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging and print metrics to stderr")

	cmd.AddCommand(
		newTablesCmd(a),
		newGridCmd(a),
		newFillCmd(a),
		newShowCmd(a),
		newSnapshotsCmd(a),
	)

	return cmd
}

// setup resolves configuration and the logger before any command runs
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.Resolve(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.OutputFormat = a.format
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(a.log)
	a.metrics = logger.NewMetrics()

	a.log.Debug("Configuration resolved", logger.Fields{
		"parser":   cfg.Parser,
		"fetcher":  cfg.Fetcher,
		"timeout":  cfg.Timeout.String(),
		"data_dir": cfg.DataDir,
	})
	return nil
}

// reportMetrics prints the metrics snapshot to stderr in verbose mode
func (a *app) reportMetrics(cmd *cobra.Command, _ []string) {
	if !a.verbose || a.metrics == nil {
		return
	}
	enc := json.NewEncoder(cmd.ErrOrStderr())
	enc.SetIndent("", "  ")
	enc.Encode(map[string]interface{}{"metrics": a.metrics.GetSnapshot()}) // nolint:errcheck
}

// printer builds the output printer for cmd's stdout
func (a *app) printer(cmd *cobra.Command) (*output.Printer, error) {
	out := cmd.OutOrStdout()

	format := output.DefaultFormat(isTerminal(out))
	if a.cfg.OutputFormat != "" {
		f, err := output.ParseFormat(a.cfg.OutputFormat)
		if err != nil {
			return nil, err
		}
		format = f
	}

	return output.NewPrinter(out, format, a.query)
}

// storage opens the snapshot store
func (a *app) storage() (*storage.Storage, error) {
	store, err := storage.New(a.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ExitCode maps an error returned by a command to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, scraper.ErrNetwork):
		return ExitNetwork
	case errors.Is(err, table.ErrParse):
		return ExitParse
	case errors.Is(err, grid.ErrKey):
		return ExitKey
	case errors.Is(err, grid.ErrShapeMismatch):
		return ExitShapeMismatch
	default:
		return ExitError
	}
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		logger.Error("Command failed", logger.Fields{"exit_code": ExitCode(err)}, err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	_ = logger.Default().Sync()
	stop()
	os.Exit(ExitCode(err))
}
