// Package pgtest はテスト用のPostgreSQLコンテナを起動するヘルパーを提供する。
// -short 指定時やDockerが利用できない環境ではテストをスキップする。
package pgtest

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const image = "postgres:16-alpine"

// Start はPostgreSQLコンテナを起動し、接続済みの*sql.DBと接続URLを返す。
// コンテナと接続はテスト終了時に破棄される。
func Start(t *testing.T) (*sql.DB, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("agrimarket"),
		postgres.WithUsername("agrimarket"),
		postgres.WithPassword("agrimarket"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to build connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	return db, dsn
}
