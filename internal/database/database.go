package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/mattn/go-sqlite3"
)

type Dialect string

const (
	DialectMySQL      Dialect = "mysql"
	DialectPostgreSQL Dialect = "postgresql"
	DialectSQLite     Dialect = "sqlite"
	DialectDuckDB     Dialect = "duckdb"
)

type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// SampleRows is the number of example rows included per table in
	// TableInfo. Zero disables samples.
	SampleRows int
}

// Rows is the raw outcome of a statement.
type Rows struct {
	Columns []string
	Data    [][]any
}

// Handle is the process-wide connection to the database being questioned.
type Handle struct {
	db         *sql.DB
	dialect    Dialect
	sampleRows int
	workDir    string
}

func Open(ctx context.Context, cfg Config) (*Handle, error) {
	target, err := resolve(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(target.driver, target.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", target.dialect, err)
	}

	if target.singleConn {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 && !target.singleConn {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", target.dialect, err)
	}

	return New(db, target.dialect, cfg.SampleRows), nil
}

// New wraps an already opened *sql.DB.
func New(db *sql.DB, dialect Dialect, sampleRows int) *Handle {
	if sampleRows < 0 {
		sampleRows = 0
	}
	return &Handle{db: db, dialect: dialect, sampleRows: sampleRows}
}

func (h *Handle) Dialect() string {
	return string(h.dialect)
}

func (h *Handle) Close() error {
	err := h.db.Close()
	if h.workDir != "" {
		_ = os.RemoveAll(h.workDir)
	}
	return err
}

// Run executes sqlText and returns every row it produces.
func (h *Handle) Run(ctx context.Context, sqlText string) (Rows, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return Rows{}, fmt.Errorf("sql is required")
	}

	rows, err := h.db.QueryContext(ctx, sqlText)
	if err != nil {
		return Rows{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectRows(rows)
}

func collectRows(rows *sql.Rows) (Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		return Rows{}, fmt.Errorf("query columns: %w", err)
	}

	data := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Rows{}, fmt.Errorf("scan row: %w", err)
		}
		data = append(data, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Rows{}, fmt.Errorf("iterate rows: %w", err)
	}
	return Rows{Columns: columns, Data: data}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

func (h *Handle) quoteIdent(value string) string {
	if h.dialect == DialectMySQL {
		return "`" + strings.ReplaceAll(value, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
