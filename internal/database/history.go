package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/keyprobe/internal/model"
)

// DBFileName is the database file name inside the database directory.
const DBFileName = "keyprobe.db"

var (
	// ErrScanNotFound is returned when no saved scan matches an ID.
	ErrScanNotFound = errors.New("scan not found")

	// ErrAmbiguousScanID is returned when an ID prefix matches several scans.
	ErrAmbiguousScanID = errors.New("scan ID prefix matches more than one scan")
)

// HistoryDB stores finished scans.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	-- One row per saved scan; report_json holds the masked results
	CREATE TABLE IF NOT EXISTS scans (
		scan_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		total INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		active INTEGER NOT NULL,
		remote_errors INTEGER NOT NULL,
		transport_errors INTEGER NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);

	-- One row per candidate and scan, keyed by fingerprint
	CREATE TABLE IF NOT EXISTS key_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL REFERENCES scans(scan_id),
		fingerprint TEXT NOT NULL,
		masked_key TEXT NOT NULL,
		status TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		model_count INTEGER NOT NULL DEFAULT 0,
		UNIQUE(scan_id, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_key_results_fingerprint ON key_results(fingerprint);
	`

	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// ScanSummary is one row of the scans table.
type ScanSummary struct {
	ScanID          string    `json:"scan_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Total           int       `json:"total"`
	Processed       int       `json:"processed"`
	Active          int       `json:"active"`
	RemoteErrors    int       `json:"remote_errors"`
	TransportErrors int       `json:"transport_errors"`
	Cancelled       bool      `json:"cancelled"`
}

// Duration returns how long the scan took.
func (s ScanSummary) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ScanRecord is a saved scan with its masked results.
type ScanRecord struct {
	ScanSummary
	Results []model.ResultView `json:"results"`
}

// KeyObservation is one appearance of a key in a saved scan.
type KeyObservation struct {
	ScanID      string            `json:"scan_id"`
	ObservedAt  time.Time         `json:"observed_at"`
	Fingerprint string            `json:"fingerprint"`
	MaskedKey   string            `json:"masked_key"`
	Status      model.OutcomeKind `json:"status"`
	StatusCode  int               `json:"status_code,omitempty"`
	Message     string            `json:"message,omitempty"`
	ModelCount  int               `json:"model_count"`
}

// SaveReport stores report and its per-key results in one transaction.
// Keys are stored masked, next to their fingerprint.
func (h *HistoryDB) SaveReport(ctx context.Context, report *model.Report) (err error) {
	views := report.Views(false)
	reportJSON, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO scans (scan_id, started_at, finished_at, total, processed, active,
		remote_errors, transport_errors, cancelled, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ScanID,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Total,
		report.Processed,
		report.Active,
		report.RemoteErrors(),
		report.TransportErrors(),
		report.Cancelled,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO key_results (scan_id, fingerprint, masked_key, status, status_code, message, model_count)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare key result insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	for _, v := range views {
		if _, err = stmt.ExecContext(ctx,
			report.ScanID,
			v.Fingerprint,
			v.Key,
			v.Kind.String(),
			v.StatusCode,
			v.Message,
			len(v.Models),
		); err != nil {
			return fmt.Errorf("failed to insert key result: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}
	return nil
}

const scanColumns = `scan_id, started_at, finished_at, total, processed, active,
	remote_errors, transport_errors, cancelled`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner, extra ...any) (ScanSummary, error) {
	var s ScanSummary
	var startedAt, finishedAt string

	dest := append([]any{
		&s.ScanID,
		&startedAt,
		&finishedAt,
		&s.Total,
		&s.Processed,
		&s.Active,
		&s.RemoteErrors,
		&s.TransportErrors,
		&s.Cancelled,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return ScanSummary{}, err
	}

	s.StartedAt = parseTimestamp(startedAt)
	s.FinishedAt = parseTimestamp(finishedAt)
	return s, nil
}

// ListScans returns saved scans, newest first. A non-positive limit returns all.
func (h *HistoryDB) ListScans(ctx context.Context, limit int) ([]ScanSummary, error) {
	query := `SELECT ` + scanColumns + ` FROM scans ORDER BY started_at DESC, scan_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var scans []ScanSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, s)
	}

	return scans, rows.Err()
}

// GetScan returns the saved scan whose ID is id or starts with id.
// It returns ErrScanNotFound when nothing matches and ErrAmbiguousScanID
// when a prefix matches several scans.
func (h *HistoryDB) GetScan(ctx context.Context, id string) (*ScanRecord, error) {
	if id == "" {
		return nil, ErrScanNotFound
	}

	rows, err := h.db.QueryContext(ctx, `
	SELECT `+scanColumns+`, report_json FROM scans
	WHERE scan_id = ? OR substr(scan_id, 1, ?) = ?
	ORDER BY scan_id = ? DESC
	LIMIT 2
	`, id, len(id), id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var reportJSON string
		s, err := scanSummary(rows, &reportJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := ScanRecord{ScanSummary: s}
		if err := json.Unmarshal([]byte(reportJSON), &record.Results); err != nil {
			return nil, fmt.Errorf("failed to parse report: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	switch {
	case len(records) == 0:
		return nil, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	case records[0].ScanID == id || len(records) == 1:
		return &records[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousScanID, id)
	}
}

// KeyHistory returns every saved observation of the key with the given
// fingerprint, newest first.
func (h *HistoryDB) KeyHistory(ctx context.Context, fingerprint string) ([]KeyObservation, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT k.scan_id, s.started_at, k.fingerprint, k.masked_key, k.status,
		k.status_code, k.message, k.model_count
	FROM key_results k
	JOIN scans s ON s.scan_id = k.scan_id
	WHERE k.fingerprint = ?
	ORDER BY s.started_at DESC, k.scan_id
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to query key history: %w", err)
	}
	defer rows.Close()

	var history []KeyObservation
	for rows.Next() {
		var obs KeyObservation
		var observedAt, status string
		if err := rows.Scan(
			&obs.ScanID,
			&observedAt,
			&obs.Fingerprint,
			&obs.MaskedKey,
			&status,
			&obs.StatusCode,
			&obs.Message,
			&obs.ModelCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		obs.ObservedAt = parseTimestamp(observedAt)
		if err := obs.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, fmt.Errorf("failed to parse status: %w", err)
		}
		history = append(history, obs)
	}

	return history, rows.Err()
}

// storedTimestampFormat sorts lexicographically in time order.
const storedTimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(storedTimestampFormat)
}

// timestampFormats contains the timestamp formats that may be read back.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimestampFormat,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time if s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
