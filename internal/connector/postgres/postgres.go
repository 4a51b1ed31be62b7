// Package postgres connects the suppression engine to a Postgres table:
// reading the raw aggregate, writing the projected output back, and
// recording an audit trail of every run for compliance review.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/ostrichaudit/suppress/internal/suppress"
)

// Config holds connection settings for the suppression data path.
type Config struct {
	ConnectionString string
	MaxConnections   int32
	ConnectTimeout   time.Duration
	MigrationsPath   string
}

// Connector provides the read/write/audit operations a run needs.
type Connector struct {
	pool *pgxpool.Pool
	cfg  Config
}

// Open creates a connection pool and verifies it is reachable.
func Open(ctx context.Context, cfg Config) (*Connector, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("postgres: connection string is required")
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 10
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://internal/connector/postgres/migrations"
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing connection string: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConnections
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	timeoutCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(timeoutCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating connection pool: %w", err)
	}
	if err := pool.Ping(timeoutCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Connector{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool.
func (c *Connector) Close() { c.pool.Close() }

// Migrate applies pending schema migrations using golang-migrate, driven
// off the same pool's DSN via database/sql through the lib/pq driver
// golang-migrate requires.
func (c *Connector) Migrate() error {
	m, err := migrate.New(c.cfg.MigrationsPath, c.cfg.ConnectionString)
	if err != nil {
		return fmt.Errorf("postgres: initializing migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("postgres: applying migrations: %w", err)
	}
	return nil
}

// ReadRows loads every row of table as an InputRow, using cfg.Dimensions
// plus cfg.IncidenceColumn as the projected column list.
func (c *Connector) ReadRows(ctx context.Context, table string, cfg suppress.Config) ([]suppress.InputRow, error) {
	columns := append(append([]string(nil), cfg.Dimensions...), cfg.IncidenceColumn)
	query := buildSelect(columns, table)

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: querying %s: %w", table, err)
	}
	defer rows.Close()

	var out []suppress.InputRow
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("postgres: scanning row from %s: %w", table, err)
		}
		row := make(suppress.InputRow, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: reading %s: %w", table, err)
	}
	return out, nil
}

// WriteOutput truncates table and inserts every projected row inside a
// single transaction, so a failed run never leaves a partially written
// publication in place.
func (c *Connector) WriteOutput(ctx context.Context, table string, out suppress.Output) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
		return fmt.Errorf("postgres: truncating %s: %w", table, err)
	}

	dims := dimensionNames(out)
	columns := append(append([]string(nil), dims...), "incidence", "is_redacted", "redaction_reason")
	rowsInput := make([][]interface{}, 0, len(out.Rows))
	for _, row := range out.Rows {
		values := make([]interface{}, 0, len(columns))
		for _, d := range dims {
			values = append(values, row.Dims[d])
		}
		values = append(values, fmt.Sprint(row.Incidence), row.IsRedacted, row.RedactionReason)
		rowsInput = append(rowsInput, values)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rowsInput)); err != nil {
		return fmt.Errorf("postgres: copying rows into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: committing transaction: %w", err)
	}
	return nil
}

// RecordRun appends an audit row describing one suppression run.
func (c *Connector) RecordRun(ctx context.Context, runID string, cfg suppress.Config, stats suppress.Stats) error {
	const query = `
		INSERT INTO suppression_audit
			(run_id, dimensions, threshold, total_cells, redacted_cells, suppression_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := c.pool.Exec(ctx, query,
		runID, cfg.Dimensions, cfg.Threshold, stats.TotalCells, stats.RedactedCells, stats.SuppressionRate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: recording audit entry: %w", err)
	}
	return nil
}

func buildSelect(columns []string, table string) string {
	q := "SELECT "
	for i, c := range columns {
		if i > 0 {
			q += ", "
		}
		q += pgx.Identifier{c}.Sanitize()
	}
	q += " FROM " + pgx.Identifier{table}.Sanitize()
	return q
}

func dimensionNames(out suppress.Output) []string {
	if len(out.Rows) == 0 {
		return nil
	}
	dims := make([]string, 0, len(out.Rows[0].Dims))
	for d := range out.Rows[0].Dims {
		dims = append(dims, d)
	}
	return dims
}
