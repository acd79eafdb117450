package clickhouse

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"multichain-token-lab/internal/storage/migrations"
)

// setupTestDB returns a migrated ClickHouse connection. CLICKHOUSE_TEST_DSN points
// at an existing server; otherwise a container is started.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	if dsn := os.Getenv("CLICKHOUSE_TEST_DSN"); dsn != "" {
		return connectExisting(t, ctx, dsn)
	}

	// Start ClickHouse container
	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port()))
	require.NoError(t, err)

	runMigrations(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// connectExisting creates a throwaway database on a running server.
func connectExisting(t *testing.T, ctx context.Context, dsn string) (*Conn, func()) {
	t.Helper()

	dbName := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin, err := NewConnWithDatabase(ctx, dsn, "")
	require.NoError(t, err)
	require.NoError(t, admin.Exec(ctx, "CREATE DATABASE "+dbName))

	conn, err := NewConnWithDatabase(ctx, dsn, dbName)
	require.NoError(t, err)

	runMigrations(t, conn)

	cleanup := func() {
		conn.Close()
		if err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+dbName); err != nil {
			t.Logf("failed to drop database %s: %v", dbName, err)
		}
		admin.Close()
	}

	return conn, cleanup
}

func runMigrations(t *testing.T, conn *Conn) {
	t.Helper()

	applied, err := migrations.ApplyClickhouse(context.Background(), conn)
	require.NoError(t, err, "failed to apply migrations")
	require.NotEmpty(t, applied)
}
