package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hotelimages/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase initializes and returns a connection to the run ledger
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		processed INTEGER,
		failed INTEGER,
		total_original INTEGER,
		total_webp INTEGER,
		total_avif INTEGER
	);
	CREATE TABLE IF NOT EXISTS run_images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		class TEXT,
		status TEXT NOT NULL,
		error TEXT,
		width INTEGER,
		height INTEGER,
		original_size INTEGER,
		webp_size INTEGER,
		avif_size INTEGER,
		has_blur INTEGER,
		UNIQUE(run_id, path)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
	CREATE INDEX IF NOT EXISTS idx_run_images_path ON run_images(path);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// timeLayout keeps a fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// OpenDatabase opens an existing ledger connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// NewRunID returns a fresh run identifier
func NewRunID() string {
	return uuid.NewString()
}

// RecordRun stores a run and its per-image records in one transaction. An
// empty ID is replaced with a new one, which is returned.
func RecordRun(db *sql.DB, run types.RunRecord) (string, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("cannot begin transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			id, started_at, finished_at, processed, failed, total_original, total_webp, total_avif
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Processed,
		run.Failed,
		run.TotalOriginal,
		run.TotalWebp,
		run.TotalAvif,
	)
	if err != nil {
		return "", fmt.Errorf("cannot insert run %s: %v", run.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO run_images (
			run_id, path, class, status, error, width, height, original_size, webp_size, avif_size, has_blur
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("cannot prepare statement for run %s: %v", run.ID, err)
	}
	defer stmt.Close()

	for _, img := range run.Images {
		_, err := stmt.Exec(
			run.ID,
			img.Path,
			img.Class,
			string(img.Status),
			img.Error,
			img.Width,
			img.Height,
			img.OriginalSize,
			img.WebpSize,
			img.AvifSize,
			img.HasBlur,
		)
		if err != nil {
			return "", fmt.Errorf("cannot insert data for %s: %v", img.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("cannot commit run %s: %v", run.ID, err)
	}
	return run.ID, nil
}

const runColumns = `id, started_at, finished_at, processed, failed, total_original, total_webp, total_avif`

// LastRun returns the most recently finished run, or nil when the ledger is
// empty. Runs whose ID equals exclude are skipped.
func LastRun(db *sql.DB, exclude string) (*types.RunRecord, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id != ? ORDER BY finished_at DESC LIMIT 1`, exclude)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %v", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first
func ListRuns(db *sql.DB, limit int) ([]types.RunRecord, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %v", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RunImages returns the per-image records of a run ordered by path
func RunImages(db *sql.DB, runID string) ([]types.ImageRecord, error) {
	rows, err := db.Query(`
		SELECT path, class, status, error, width, height, original_size, webp_size, avif_size, has_blur
		FROM run_images WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get images of run %s: %v", runID, err)
	}
	defer rows.Close()

	var images []types.ImageRecord
	for rows.Next() {
		var img types.ImageRecord
		var status string
		var errMsg sql.NullString
		var hasBlur sql.NullBool
		if err := rows.Scan(&img.Path, &img.Class, &status, &errMsg, &img.Width, &img.Height,
			&img.OriginalSize, &img.WebpSize, &img.AvifSize, &hasBlur); err != nil {
			return nil, err
		}
		img.Status = types.ImageStatus(status)
		img.Error = errMsg.String
		img.HasBlur = hasBlur.Bool
		images = append(images, img)
	}
	return images, rows.Err()
}

// LedgerStats contains totals over every recorded run
type LedgerStats struct {
	TotalRuns    int
	FailedImages int
	UniquePaths  int
}

// GetLedgerStats retrieves statistics about recorded runs
func GetLedgerStats(db *sql.DB) (*LedgerStats, error) {
	var stats LedgerStats

	if err := db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns); err != nil {
		return nil, fmt.Errorf("failed to count runs: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM run_images WHERE status = ?", string(types.StatusFailed)).Scan(&stats.FailedImages); err != nil {
		return nil, fmt.Errorf("failed to count failed images: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(DISTINCT path) FROM run_images").Scan(&stats.UniquePaths); err != nil {
		return nil, fmt.Errorf("failed to count unique paths: %v", err)
	}

	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*types.RunRecord, error) {
	var run types.RunRecord
	var startedAt, finishedAt string
	err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.Processed, &run.Failed,
		&run.TotalOriginal, &run.TotalWebp, &run.TotalAvif)
	if err != nil {
		return nil, err
	}
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("cannot parse start time of run %s: %v", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return nil, fmt.Errorf("cannot parse finish time of run %s: %v", run.ID, err)
	}
	return &run, nil
}
