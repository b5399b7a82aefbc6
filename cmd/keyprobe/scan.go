package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/nao1215/keyprobe/internal/config"
	"github.com/nao1215/keyprobe/internal/database"
	"github.com/nao1215/keyprobe/internal/extract"
	"github.com/nao1215/keyprobe/internal/input"
	klog "github.com/nao1215/keyprobe/internal/log"
	"github.com/nao1215/keyprobe/internal/model"
	"github.com/nao1215/keyprobe/internal/probe"
	"github.com/nao1215/keyprobe/internal/report"
	"github.com/nao1215/keyprobe/internal/scanner"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [file...]",
		Short: "Find API keys in text and probe which are active",
		Long: `Scan extracts every Google AI API key (AIza followed by 35 characters)
from the given files, or from stdin when no file or "-" is given, and probes
each distinct key once against the Generative Language API.

Progress is written to stderr as keys are probed. The final report goes to
stdout or to the --output file. Press Ctrl+C to stop: probes in flight finish
and a partial report is written.

Examples:
  # Scan a file
  keyprobe scan leaked.txt

  # Scan stdin with 16 concurrent probes
  git log -p | keyprobe scan -n 16

  # Write a JSON report and save the scan to the history database
  keyprobe scan --json -o report.json --save dump.log

  # Probe through Tor
  keyprobe scan -x 127.0.0.1:9050 leaked.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .keyprobe in current or home directory)")

	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Time limit for each probe")
	cmd.Flags().IntP("concurrency", "n", 0,
		"Maximum number of probes in flight (default: number of CPUs)")
	cmd.Flags().StringP("endpoint", "e", config.DefaultEndpoint,
		"Validation endpoint")
	cmd.Flags().StringP("proxy", "x", "",
		"Route probes through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().BoolP("reveal", "r", false,
		"Print full keys in the report instead of masked ones")

	cmd.Flags().BoolP("save", "s", false,
		"Save the scan to the history database")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not print per-key progress")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := klog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, streams{
		in:  cmd.InOrStdin(),
		out: cmd.OutOrStdout(),
		err: cmd.ErrOrStderr(),
	}, logger)
}

// streams bundles the standard streams of a command.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfigFile applies the configuration file to cfg, if one is found.
// An explicitly requested file that does not exist is an error.
func loadConfigFile(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if err := cfg.ApplyFile(file); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

// buildConfig creates a Config from defaults, the configuration file and
// the flags the user set, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.UserAgent = userAgent()

	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}

	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("endpoint") {
		if cfg.Endpoint, err = flags.GetString("endpoint"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}

	// A format flag replaces the format chosen in the file.
	jsonReport, err := flags.GetBool("json")
	if err != nil {
		return nil, err
	}
	markdownReport, err := flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}
	if jsonReport || markdownReport {
		cfg.JSONReport, cfg.MarkdownReport = jsonReport, markdownReport
	}

	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if flags.Changed("reveal") {
		if cfg.Reveal, err = flags.GetBool("reveal"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("save") {
		if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
			return nil, err
		}
	}
	if cfg.Quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Inputs = args

	return cfg, nil
}

// runScan reads the input, probes every candidate and writes the report.
// A cancelled scan still writes its partial report and then returns the
// cancellation error.
func runScan(ctx context.Context, cfg *config.Config, std streams, logger *slog.Logger) error {
	text, err := input.ReadSources(ctx, cfg.Inputs, std.in, cfg.MaxInputSize)
	if err != nil {
		return err
	}

	total := extract.Extract(text).Len()
	if total == 0 {
		fmt.Fprintln(std.err, "no keys found")
		return nil
	}

	prober, err := probe.NewHTTPProber(
		probe.WithEndpoint(cfg.Endpoint),
		probe.WithTimeout(cfg.Timeout),
		probe.WithUserAgent(cfg.UserAgent),
		probe.WithMaxBodySize(cfg.MaxBodySize),
		probe.WithProxy(cfg.ProxyAddress),
		probe.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create prober: %w", err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(std.err, "Probing %d key(s) (concurrency: %d, timeout: %s)...\n",
			total, cfg.Concurrency, cfg.Timeout)
	}

	s := scanner.New(prober, scanner.WithLogger(logger))
	scan, err := s.StartScan(ctx, text, cfg.Concurrency, cfg.Timeout, newProgress(std.err, total, cfg.Quiet))
	if errors.Is(err, scanner.ErrNoCandidates) {
		fmt.Fprintln(std.err, "no keys found")
		return nil
	}
	if err != nil {
		return err
	}

	// The scan stops on its own once ctx is cancelled, so wait unbounded.
	rep, scanErr := scan.Wait(context.Background())
	if scanErr != nil && !errors.Is(scanErr, scanner.ErrScanCancelled) {
		return scanErr
	}
	if scanErr != nil {
		fmt.Fprintf(std.err, "Scan cancelled after %d of %d key(s)\n", rep.Processed, rep.Total)
	}

	if err := outputReport(cfg, &rep, std.out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.SaveToDB {
		// Save even when interrupted; ctx is already done by then.
		if err := saveReport(context.WithoutCancel(ctx), cfg.DBDir, &rep, logger); err != nil {
			return err
		}
	}

	return scanErr
}

// progress prints one line per probed key to w.
type progress struct {
	mu        sync.Mutex
	w         io.Writer
	total     int
	processed int
	quiet     bool
}

func newProgress(w io.Writer, total int, quiet bool) *progress {
	return &progress{w: w, total: total, quiet: quiet}
}

func (p *progress) OnCandidateResult(c model.Candidate, o model.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] %s %s %s\n", p.processed, p.total, c.Masked(), o.Kind.Label(), o.Detail())
}

func (p *progress) OnCandidateFinished(model.Candidate) {}

func (p *progress) OnScanCompleted(s model.Summary) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "Done: %d of %d key(s) active\n", s.Active, s.Total)
}

// outputReport writes the report in the configured format to the report
// file, or to stdout when no file is set.
func outputReport(cfg *config.Config, rep *model.Report, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Revealed reports contain live keys; keep the file private.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	w, err := report.New(cfg.ReportFormat(), output,
		report.WithReveal(cfg.Reveal),
		report.WithVersion(getVersion()),
		report.WithPrettyPrint(),
	)
	if err != nil {
		return err
	}
	_, err = w.Write(rep)
	return err
}

// saveReport stores the report in the history database in dbDir.
func saveReport(ctx context.Context, dbDir string, rep *model.Report, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.SaveReport(ctx, rep); err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}

	logger.Info("scan saved to history", "scanID", rep.ScanID, "db", db.Path())
	return nil
}
