package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// TestPostgres runs against a disposable database named by
// LPCSV_TEST_DATABASE_URL. All work happens in a transaction that is rolled
// back.
func TestPostgres(t *testing.T) {
	url := os.Getenv("LPCSV_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LPCSV_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(ctx) })

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback(ctx) })

	s := NewPostgres(tx)
	require.NoError(t, s.Migrate(ctx))
	testStore(t, s)
}
