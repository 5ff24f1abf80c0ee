// Package testutil starts throwaway PostgreSQL databases for repository tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/azdice/internal/config"
	"github.com/cory-johannsen/azdice/internal/storage/postgres"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "azdice_test"
	pgPassword = "azdice_test"
	pgDatabase = "azdice_test"
)

// HistoryDB is a migrated database running in a container for one test.
type HistoryDB struct {
	Pool   *postgres.Pool
	Config config.DatabaseConfig
}

// StartHistoryDB runs PostgreSQL in a container, applies migrations/ and
// connects. Container and pool are released by t.Cleanup. The test is
// skipped under -short.
//
// Precondition: Docker must be reachable.
func StartHistoryDB(t *testing.T) *HistoryDB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}
	ctx := context.Background()
	start := time.Now()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// The entrypoint restarts the server once after init, so the
			// readiness line appears twice.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxConns:        4,
		MaxConnLifetime: 5 * time.Minute,
	}
	res, err := postgres.Migrate(cfg.DSN(), MigrationsDir(t), "up", 0)
	if err != nil {
		t.Fatalf("applying migrations: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	t.Logf("postgres ready at migration %d [%s]", res.Version, time.Since(start))
	return &HistoryDB{Pool: pool, Config: cfg}
}

// MigrationsDir returns the migrations directory at the module root, found by
// walking up from the working directory to go.mod.
func MigrationsDir(t testing.TB) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for dir := wd; ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("no go.mod above %s", wd)
		}
		dir = parent
	}
}
