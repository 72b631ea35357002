package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb/v2"

	"ReviewAspects/internal/frame"
	"ReviewAspects/internal/ports"
)

// DuckDB is a file-backed (or in-memory, with an empty DSN) warehouse.
type DuckDB struct {
	db *sql.DB
}

var _ ports.Warehouse = (*DuckDB)(nil)

// NewDuckDB opens the database at dsn, creating its directory if needed.
func NewDuckDB(dsn string) (*DuckDB, error) {
	if path, _, _ := strings.Cut(dsn, "?"); path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create duckdb dir: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &DuckDB{db: db}, nil
}

// RunQuery executes a read query and returns its result set.
func (w *DuckDB) RunQuery(ctx context.Context, query string) (*frame.Frame, error) {
	rows, err := w.db.QueryContext(ctx, NormalizeQuery(query))
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	return scanFrame(rows)
}

// DistinctValues returns the distinct values of column in table.
func (w *DuckDB) DistinctValues(ctx context.Context, table, column string) ([]any, error) {
	query, args, err := distinctQuery(sq.StatementBuilder, table, column)
	if err != nil {
		return nil, fmt.Errorf("build distinct query: %w", err)
	}
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s from %s: %w", column, table, err)
	}
	f, err := scanFrame(rows)
	if err != nil {
		return nil, err
	}
	return firstColumn(f), nil
}

// AppendFile loads a Parquet file into table, creating it from the file schema when absent.
// Columns are matched by name.
func (w *DuckDB) AppendFile(ctx context.Context, path, table string) (int64, error) {
	source := "read_parquet(" + quoteLiteral(path) + ")"
	target := quoteIdent(table)

	cols, err := w.fileColumns(ctx, source)
	if err != nil {
		return 0, err
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s AS SELECT * FROM %s LIMIT 0", target, source)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}

	insert, args, err := sq.Insert(target).
		Columns(cols...).
		Select(sq.Select(cols...).From(source)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := tx.ExecContext(ctx, insert, args...)
	if err != nil {
		return 0, fmt.Errorf("append into %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (w *DuckDB) Close() error {
	return w.db.Close()
}

func (w *DuckDB) fileColumns(ctx context.Context, source string) ([]string, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT * FROM "+source+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("read parquet schema: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read parquet schema: %w", err)
	}
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = quoteName(n)
	}
	return cols, nil
}
