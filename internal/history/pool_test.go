package history

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/wonny/creditgate/pkg/config"
	"github.com/wonny/creditgate/pkg/database"
)

// testPool connects to DATABASE_URL and applies the schema
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(context.Background()))
	_, err = db.Pool.Exec(context.Background(), `TRUNCATE screener.daily_scans CASCADE`)
	require.NoError(t, err)
	return db.Pool
}
