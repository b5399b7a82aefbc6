package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/nao1215/keyprobe/internal/config"
	"github.com/nao1215/keyprobe/internal/database"
	"github.com/nao1215/keyprobe/internal/extract"
	"github.com/nao1215/keyprobe/internal/model"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of scans listed when --limit is not set.
const defaultHistoryLimit = 20

// errInvalidKeyArg is returned when --key is neither a key nor a fingerprint.
var errInvalidKeyArg = errors.New("--key must be an API key or a 64 character hex fingerprint")

var fingerprintPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show scans saved in the history database",
		Long: `History shows scans saved with 'keyprobe scan --save'.

Without flags it lists the most recent scans. Keys are stored masked and
identified by their SHA3-256 fingerprint, so a key can be looked up either by
the key itself or by the fingerprint printed in JSON reports.

Examples:
  # List the 20 most recent scans
  keyprobe history

  # Show one scan (a unique ID prefix is enough)
  keyprobe history --id 0f8fad5b

  # Show every scan in which a key was seen
  keyprobe history --key AIzaSy...

  # Output in JSON format
  keyprobe history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("id", "i", "",
		"Show the scan with this ID or unique ID prefix")
	cmd.Flags().StringP("key", "k", "",
		"Show the history of a key, given as the key or its fingerprint")
	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Maximum number of scans to list (0 for all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .keyprobe in current or home directory)")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	id          string
	fingerprint string
	limit       int
	jsonOutput  bool
	dbDir       string
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Listing an empty history must not create the database.
	dbPath := filepath.Join(opts.dbDir, database.DBFileName)
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No scan history found.")
		fmt.Fprintln(out, "\nUse 'keyprobe scan --save' to record scans.")
		return nil
	}

	db, err := database.Open(opts.dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case opts.id != "":
		return showScan(ctx, out, db, opts.id, opts.jsonOutput)
	case opts.fingerprint != "":
		return showKeyHistory(ctx, out, db, opts.fingerprint, opts.jsonOutput)
	default:
		return listScans(ctx, out, db, opts.limit, opts.jsonOutput)
	}
}

// parseHistoryFlags validates the flags before the database is touched.
func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var opts historyOptions
	flags := cmd.Flags()

	var err error
	if opts.id, err = flags.GetString("id"); err != nil {
		return opts, err
	}
	key, err := flags.GetString("key")
	if err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.jsonOutput, err = flags.GetBool("json"); err != nil {
		return opts, err
	}

	if opts.id != "" && key != "" {
		return opts, errors.New("--id and --key cannot be used together")
	}
	if opts.limit < 0 {
		return opts, errors.New("--limit must not be negative")
	}
	if key != "" {
		if opts.fingerprint, err = keyFingerprint(key); err != nil {
			return opts, err
		}
	}

	opts.dbDir, err = flags.GetString("db-dir")
	if err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		cfg := config.NewConfig()
		if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
			return opts, err
		}
		if err := loadConfigFile(cfg); err != nil {
			return opts, err
		}
		opts.dbDir = cfg.DBDir
	}

	return opts, nil
}

// keyFingerprint turns a --key argument into a fingerprint.
func keyFingerprint(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if extract.IsCandidate(arg) {
		return model.Candidate(arg).Fingerprint(), nil
	}
	if fp := strings.ToLower(arg); fingerprintPattern.MatchString(fp) {
		return fp, nil
	}
	return "", errInvalidKeyArg
}

// listScans prints the most recent scans.
func listScans(ctx context.Context, out io.Writer, db *database.HistoryDB, limit int, jsonOutput bool) error {
	scans, err := db.ListScans(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list scans: %w", err)
	}

	if jsonOutput {
		if scans == nil {
			scans = []database.ScanSummary{}
		}
		return writeJSON(out, scans)
	}

	if len(scans) == 0 {
		fmt.Fprintln(out, "No scan history found.")
		return nil
	}

	fmt.Fprintf(out, "Saved scans (%d):\n\n", len(scans))
	fmt.Fprintf(out, "  %-36s  %-19s  %6s  %6s  %6s  %s\n", "ID", "Date", "Keys", "Active", "Errors", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 95))
	for _, s := range scans {
		fmt.Fprintf(out, "  %-36s  %-19s  %6d  %6d  %6d  %s\n",
			s.ScanID,
			s.StartedAt.Local().Format(time.DateTime),
			s.Total,
			s.Active,
			s.RemoteErrors+s.TransportErrors,
			scanStatus(s),
		)
	}
	fmt.Fprintln(out, "\nUse 'keyprobe history --id <id>' to see the results of a scan.")

	return nil
}

// showScan prints one saved scan with its results.
func showScan(ctx context.Context, out io.Writer, db *database.HistoryDB, id string, jsonOutput bool) error {
	rec, err := db.GetScan(ctx, id)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(out, rec)
	}

	fmt.Fprintf(out, "Scan %s\n\n", rec.ScanID)
	fmt.Fprintf(out, "  Started:    %s\n", rec.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Duration:   %s\n", rec.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "  Status:     %s\n", scanStatus(rec.ScanSummary))
	fmt.Fprintf(out, "  Keys:       %d (%d active, %d remote errors, %d transport errors)\n\n",
		rec.Total, rec.Active, rec.RemoteErrors, rec.TransportErrors)

	for _, v := range rec.Results {
		fmt.Fprintf(out, "  %-8s %s  %s  %s\n", "["+v.Kind.Label()+"]", v.Key, v.Fingerprint[:12], v.Detail())
	}

	return nil
}

// showKeyHistory prints every saved observation of one key.
func showKeyHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, fingerprint string, jsonOutput bool) error {
	history, err := db.KeyHistory(ctx, fingerprint)
	if err != nil {
		return err
	}

	if jsonOutput {
		if history == nil {
			history = []database.KeyObservation{}
		}
		return writeJSON(out, history)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No history found for key %s\n", fingerprint[:12])
		return nil
	}

	fmt.Fprintf(out, "History of key %s (%s), %d scan(s):\n\n", history[0].MaskedKey, fingerprint[:12], len(history))
	for _, obs := range history {
		detail := obs.Message
		if obs.Status == model.OutcomeSuccess {
			detail = fmt.Sprintf("%d model(s)", obs.ModelCount)
		}
		fmt.Fprintf(out, "  %-19s  %-8s %s  %s\n",
			obs.ObservedAt.Local().Format(time.DateTime),
			"["+obs.Status.Label()+"]",
			shortID(obs.ScanID),
			detail,
		)
	}

	return nil
}

// shortID returns the first eight characters of a scan ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func scanStatus(s database.ScanSummary) string {
	if s.Cancelled {
		return "cancelled"
	}
	return "complete"
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
