package core

// history.go persists run records in a local SQLite database.
//
// The history database is independent of the target store: it lives next
// to the service and survives restarts, so that runs triggered by the
// scheduler can be inspected later through the API.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/gmvsync/internal/reconcile"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// DefaultHistoryLimit caps history listings.
const DefaultHistoryLimit = 50

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    folder       TEXT NOT NULL,
    triggered_by TEXT NOT NULL,
    status       TEXT NOT NULL,
    started_at   TEXT NOT NULL,
    finished_at  TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    error_code   TEXT NOT NULL DEFAULT '',
    log_path     TEXT NOT NULL DEFAULT '',
    summary      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
`

// timeLayout is fixed width so that stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// History stores run records.
type History struct {
	db *sqlx.DB
}

type runRow struct {
	ID         string `db:"id"`
	Folder     string `db:"folder"`
	Trigger    string `db:"triggered_by"`
	Status     string `db:"status"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
	Error      string `db:"error"`
	ErrorCode  string `db:"error_code"`
	LogPath    string `db:"log_path"`
	Summary    string `db:"summary"`
}

// OpenHistory opens (and creates) the history database at path.
func OpenHistory(ctx context.Context, path string) (*History, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between the run goroutine and API reads
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Save inserts or replaces rec.
func (h *History) Save(ctx context.Context, rec RunRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	_, err = h.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, folder, triggered_by, status, started_at, finished_at, error, error_code, log_path, summary)
		VALUES (:id, :folder, :triggered_by, :status, :started_at, :finished_at, :error, :error_code, :log_path, :summary)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			finished_at = excluded.finished_at,
			error = excluded.error,
			error_code = excluded.error_code,
			log_path = excluded.log_path,
			summary = excluded.summary`, row)
	if err != nil {
		return fmt.Errorf("save run %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the run with id.
func (h *History) Get(ctx context.Context, id string) (RunRecord, error) {
	var row runRow
	err := h.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return row.record()
}

// List returns the latest runs, newest first.
func (h *History) List(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	var rows []runRow
	if err := h.db.SelectContext(ctx, &rows, `SELECT * FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	out := make([]RunRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// MarkInterrupted fails every run left running by a previous process.
func (h *History) MarkInterrupted(ctx context.Context, now time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE status = ?`,
		string(StatusFailed), now.UTC().Format(timeLayout), "interrupted by shutdown", string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

func toRow(rec RunRecord) (runRow, error) {
	row := runRow{
		ID:        rec.ID,
		Folder:    rec.Folder,
		Trigger:   string(rec.Trigger),
		Status:    string(rec.Status),
		StartedAt: rec.Started.UTC().Format(timeLayout),
		Error:     rec.Error,
		ErrorCode: rec.ErrorCode,
		LogPath:   rec.LogPath,
	}
	if rec.Finished != nil {
		row.FinishedAt = rec.Finished.UTC().Format(timeLayout)
	}
	if rec.Summary != nil {
		b, err := json.Marshal(rec.Summary)
		if err != nil {
			return runRow{}, fmt.Errorf("encode summary: %w", err)
		}
		row.Summary = string(b)
	}
	return row, nil
}

func (row runRow) record() (RunRecord, error) {
	rec := RunRecord{
		ID:        row.ID,
		Folder:    row.Folder,
		Trigger:   Trigger(row.Trigger),
		Status:    RunStatus(row.Status),
		Error:     row.Error,
		ErrorCode: row.ErrorCode,
		LogPath:   row.LogPath,
	}

	var err error
	if rec.Started, err = time.Parse(timeLayout, row.StartedAt); err != nil {
		return RunRecord{}, fmt.Errorf("run %s: started_at: %w", row.ID, err)
	}
	if row.FinishedAt != "" {
		finished, err := time.Parse(timeLayout, row.FinishedAt)
		if err != nil {
			return RunRecord{}, fmt.Errorf("run %s: finished_at: %w", row.ID, err)
		}
		rec.Finished = &finished
	}
	if row.Summary != "" {
		rec.Summary = &reconcile.Summary{}
		if err := json.Unmarshal([]byte(row.Summary), rec.Summary); err != nil {
			return RunRecord{}, fmt.Errorf("run %s: summary: %w", row.ID, err)
		}
	}
	return rec, nil
}
