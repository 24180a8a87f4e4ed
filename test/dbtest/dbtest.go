// Package dbtest starts one shared PostgreSQL+pgvector testcontainer per test
// binary and hands out a fully migrated database.Client to each test,
// mirroring the teacher's test/util shared-container pattern but without the
// Ent schema-per-test isolation (our migrations own DDL, not an ORM).
package dbtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pagbank/agent-router/pkg/database"
)

var (
	once      sync.Once
	sharedCfg database.Config
	setupErr  error
)

// Client starts (once per test binary) a postgres:17 container with the
// pgvector extension available, runs the embedded migrations against it, and
// returns a ready database.Client. Each call registers a cleanup that
// truncates the domain tables when the test ends, so tests don't see each
// other's rows.
func Client(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	once.Do(func() {
		container, err := postgres.Run(ctx,
			"pgvector/pgvector:pg17",
			postgres.WithDatabase("agent_router_test"),
			postgres.WithUsername("pagbank"),
			postgres.WithPassword("pagbank"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			setupErr = fmt.Errorf("dbtest: start container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			setupErr = fmt.Errorf("dbtest: container host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, "5432/tcp")
		if err != nil {
			setupErr = fmt.Errorf("dbtest: container port: %w", err)
			return
		}

		sharedCfg = database.Config{
			Host:            host,
			Port:            port.Int(),
			User:            "pagbank",
			Password:        "pagbank",
			Database:        "agent_router_test",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
		}
	})
	require.NoError(t, setupErr, "dbtest: shared container setup failed")

	client, err := database.NewClient(ctx, sharedCfg)
	require.NoError(t, err, "dbtest: connect + migrate")

	t.Cleanup(func() {
		_, _ = client.Pool.Exec(context.Background(), `TRUNCATE TABLE
			agent_configs, version_history, version_metrics,
			sessions, user_memories,
			tickets, ab_tests, ab_assignments, ab_interactions,
			knowledge_records
			RESTART IDENTITY CASCADE`)
		client.Close()
	})

	return client
}
