package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ostrichaudit/suppress/internal/suppress"
)

// setupTestContainer starts a disposable Postgres instance for integration
// tests. Skipped outside -short=false runs since it requires a Docker
// daemon on the test host.
func setupTestContainer(t *testing.T, ctx context.Context) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("suppress_test"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connStr
}

func TestConnector_MigrateReadWriteAuditRoundTrip(t *testing.T) {
	ctx := context.Background()
	connStr := setupTestContainer(t, ctx)

	conn, err := Open(ctx, Config{ConnectionString: connStr})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Migrate())

	_, err = conn.pool.Exec(ctx, `CREATE TABLE raw_counts (age TEXT, count BIGINT)`)
	require.NoError(t, err)
	_, err = conn.pool.Exec(ctx, `INSERT INTO raw_counts VALUES ('35', 3), ('25', 20)`)
	require.NoError(t, err)
	_, err = conn.pool.Exec(ctx, `CREATE TABLE published_counts (age TEXT, incidence TEXT, is_redacted BOOLEAN, redaction_reason TEXT)`)
	require.NoError(t, err)

	cfg := suppress.Config{Dimensions: []string{"age"}, Threshold: 11, IncidenceColumn: "count"}
	rows, err := conn.ReadRows(ctx, "raw_counts", cfg)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	out, err := suppress.Suppress(ctx, rows, cfg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteOutput(ctx, "published_counts", out))
	require.NoError(t, conn.RecordRun(ctx, "test-run-1", cfg, out.Stats))

	var count int
	require.NoError(t, conn.pool.QueryRow(ctx, `SELECT count(*) FROM published_counts`).Scan(&count))
	require.Equal(t, 2, count)

	var auditCount int
	require.NoError(t, conn.pool.QueryRow(ctx, `SELECT count(*) FROM suppression_audit WHERE run_id = 'test-run-1'`).Scan(&auditCount))
	require.Equal(t, 1, auditCount)
}
