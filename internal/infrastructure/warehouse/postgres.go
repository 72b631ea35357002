package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ReviewAspects/internal/frame"
	"ReviewAspects/internal/ports"
)

const defaultSchema = "public"

// Postgres is a warehouse on top of a PostgreSQL database.
type Postgres struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Warehouse = (*Postgres)(nil)

// NewPostgres opens a connection pool for dsn.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresWithDB(db), nil
}

// NewPostgresWithDB wires an existing sql.DB implementation.
func NewPostgresWithDB(db *sql.DB) *Postgres {
	return &Postgres{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// RunQuery executes a read query and returns its result set.
func (w *Postgres) RunQuery(ctx context.Context, query string) (*frame.Frame, error) {
	rows, err := w.db.QueryContext(ctx, NormalizeQuery(query))
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	return scanFrame(rows)
}

// DistinctValues returns the distinct values of column in table.
func (w *Postgres) DistinctValues(ctx context.Context, table, column string) ([]any, error) {
	query, args, err := distinctQuery(w.builder, table, column)
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

// AppendFile reads the Parquet file and streams its rows into table with COPY.
// The table is created when absent and missing columns are added.
func (w *Postgres) AppendFile(ctx context.Context, path, table string) (int64, error) {
	f, err := frame.ReadParquet(ctx, path)
	if err != nil {
		return 0, err
	}
	if f.Len() == 0 {
		return 0, nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := w.ensureTable(ctx, tx, table, f); err != nil {
		return 0, err
	}

	schema, name := splitTable(table)
	if schema == "" {
		schema = defaultSchema
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(schema, name, f.Columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}

	for _, row := range f.Rows {
		values := make([]any, len(f.Columns))
		for i, col := range f.Columns {
			values[i] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int64(f.Len()), nil
}

// Close releases the connection pool.
func (w *Postgres) Close() error {
	return w.db.Close()
}

func (w *Postgres) ensureTable(ctx context.Context, tx *sql.Tx, table string, f *frame.Frame) error {
	existing, err := w.tableColumns(ctx, tx, table)
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		defs := make([]string, len(f.Columns))
		for i, col := range f.Columns {
			defs[i] = quoteName(col) + " " + columnType(f, col)
		}
		ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
		return nil
	}

	for _, col := range f.Columns {
		if _, ok := existing[col]; ok {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", quoteIdent(table), quoteName(col), columnType(f, col))
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("add column %s: %w", col, err)
		}
	}
	return nil
}

func (w *Postgres) tableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]struct{}, error) {
	schema, name := splitTable(table)
	if schema == "" {
		schema = defaultSchema
	}

	query, args, err := w.builder.
		Select("column_name").
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": schema, "table_name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build column lookup: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols[col] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return cols, nil
}

// columnType picks a PostgreSQL type from the first non-null value of col.
func columnType(f *frame.Frame, col string) string {
	for _, row := range f.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case int64, int32, int:
			return "BIGINT"
		case float64, float32:
			return "DOUBLE PRECISION"
		case bool:
			return "BOOLEAN"
		case time.Time:
			return "TIMESTAMPTZ"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}
