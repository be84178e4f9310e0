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

	"github.com/nao1215/mailscan/internal/model"
)

// DBFileName is the name of the history database file inside the data dir.
const DBFileName = "mailscan.db"

// ErrRunNotFound is returned when a crawl run ID does not exist.
var ErrRunNotFound = errors.New("crawl run not found")

// HistoryDB stores the results of finished crawls.
// It records what a crawl found, not the state needed to resume one.
//
// Design decision: We use a single database file for all runs rather than
// one file per run. This keeps listing and comparing runs a simple query.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that `mailscan history` can
	// read while a crawl is being saved.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite accepts the mode in the file URI:
	// rw refuses to create a missing file, rwc creates it.
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

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per finished (or interrupted) crawl
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		seeds TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		dns_validation INTEGER NOT NULL,
		pages_fetched INTEGER NOT NULL,
		pages_failed INTEGER NOT NULL,
		email_count INTEGER NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	-- Emails found by each run
	CREATE TABLE IF NOT EXISTS run_emails (
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		email TEXT NOT NULL,
		dns_lookup INTEGER NOT NULL,
		PRIMARY KEY (run_id, email)
	);

	CREATE INDEX IF NOT EXISTS idx_emails_email ON run_emails(email);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary describes one stored crawl run.
type RunSummary struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Seeds         []string
	MaxDepth      int
	DNSValidation bool
	PagesFetched  int
	PagesFailed   int
	EmailCount    int
	Interrupted   bool
}

// SaveCrawlReport stores report and its emails in one transaction and
// returns the new run ID.
func (hdb *HistoryDB) SaveCrawlReport(ctx context.Context, report *model.CrawlReport) (int64, error) {
	seedsJSON, err := json.Marshal(report.Seeds)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize seeds: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after Commit
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (started_at, finished_at, seeds, max_depth, dns_validation,
		pages_fetched, pages_failed, email_count, interrupted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		string(seedsJSON),
		report.MaxDepth,
		report.DNSValidation,
		report.Stats.PagesFetched,
		report.Stats.PagesFailed,
		len(report.Emails),
		report.Interrupted,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save crawl run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_emails (run_id, email, dns_lookup) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare email insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range report.Emails {
		if _, err := stmt.ExecContext(ctx, runID, e.Email, e.DNSValidated); err != nil {
			return 0, fmt.Errorf("failed to save email %s: %w", e.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl run: %w", err)
	}

	return runID, nil
}

// runColumns is the column list scanned by scanRun.
const runColumns = `id, started_at, finished_at, seeds, max_depth, dns_validation,
	pages_fetched, pages_failed, email_count, interrupted`

// ListRuns returns the most recent runs, newest first.
// A non-positive limit returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM crawl_runs ORDER BY id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetRun returns the run with the given ID, or ErrRunNotFound.
func (hdb *HistoryDB) GetRun(ctx context.Context, runID int64) (*RunSummary, error) {
	row := hdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM crawl_runs WHERE id = ?`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return run, err
}

// RunEmails returns the emails found by a run, sorted by address.
// It returns ErrRunNotFound if the run does not exist.
func (hdb *HistoryDB) RunEmails(ctx context.Context, runID int64) ([]model.EmailResult, error) {
	if _, err := hdb.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := hdb.db.QueryContext(ctx,
		`SELECT email, dns_lookup FROM run_emails WHERE run_id = ? ORDER BY email`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer rows.Close()

	emails := make([]model.EmailResult, 0)
	for rows.Next() {
		var e model.EmailResult
		if err := rows.Scan(&e.Email, &e.DNSValidated); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		emails = append(emails, e)
	}

	return emails, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunSummary, error) {
	var (
		run                 RunSummary
		startedAt, finished string
		seedsJSON           string
	)

	err := row.Scan(
		&run.ID,
		&startedAt,
		&finished,
		&seedsJSON,
		&run.MaxDepth,
		&run.DNSValidation,
		&run.PagesFetched,
		&run.PagesFailed,
		&run.EmailCount,
		&run.Interrupted,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan crawl run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finished)
	if err := json.Unmarshal([]byte(seedsJSON), &run.Seeds); err != nil {
		return nil, fmt.Errorf("failed to parse seeds: %w", err)
	}

	return &run, nil
}

// formatTimestamp stores times in UTC with nanosecond precision so that
// they sort lexically.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // written by formatTimestamp
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
