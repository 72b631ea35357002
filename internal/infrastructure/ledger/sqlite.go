package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"ReviewAspects/internal/domain"
	"ReviewAspects/internal/ports"
)

const runsTable = "absa_runs"

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `CREATE TABLE IF NOT EXISTS absa_runs (
	run_id          TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL,
	status          TEXT NOT NULL,
	source_rows     INTEGER NOT NULL,
	already_labeled INTEGER NOT NULL,
	delta_rows      INTEGER NOT NULL,
	labeled_rows    INTEGER NOT NULL,
	loaded_rows     INTEGER NOT NULL,
	artifact        TEXT NOT NULL,
	error           TEXT NOT NULL
)`

// SQLiteLedger stores run reports in a local SQLite file.
type SQLiteLedger struct {
	db *sql.DB
}

var _ ports.RunLedger = (*SQLiteLedger)(nil)

// Open creates the database file and schema when needed.
func Open(ctx context.Context, path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// RecordRun upserts the report keyed by run id.
func (l *SQLiteLedger) RecordRun(ctx context.Context, r domain.RunReport) error {
	query, args, err := sq.Insert(runsTable).
		Options("OR REPLACE").
		Columns("run_id", "started_at", "finished_at", "status", "source_rows", "already_labeled",
			"delta_rows", "labeled_rows", "loaded_rows", "artifact", "error").
		Values(r.RunID, formatTime(r.StartedAt), formatTime(r.FinishedAt), string(r.Status), r.SourceRows,
			r.AlreadyLabeled, r.DeltaRows, r.LabeledRows, r.LoadedRows, r.Artifact, r.Error).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit reports, newest first.
func (l *SQLiteLedger) RecentRuns(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := sq.Select("run_id", "started_at", "finished_at", "status", "source_rows",
		"already_labeled", "delta_rows", "labeled_rows", "loaded_rows", "artifact", "error").
		From(runsTable).
		OrderBy("started_at DESC", "run_id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var reports []domain.RunReport
	for rows.Next() {
		var (
			r                 domain.RunReport
			started, finished string
			status            string
		)
		if err := rows.Scan(&r.RunID, &started, &finished, &status, &r.SourceRows, &r.AlreadyLabeled,
			&r.DeltaRows, &r.LabeledRows, &r.LoadedRows, &r.Artifact, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = domain.RunStatus(status)
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return reports, nil
}

// Close releases the database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
