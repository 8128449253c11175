package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header; ignored\nCREATE TABLE a (id INT);\n\nCREATE INDEX i ON a (id);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX i ON a (id)"}, stmts)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	require.NoError(t, Migrate(ctx, db, logger))
	require.NoError(t, Migrate(ctx, db, logger))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), n)

	for _, table := range []string{"users", "products", "sales", "sale_items", "commissions", "withdrawal_requests", "refunds", "refresh_tokens"} {
		var c int
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&c)
		assert.NoError(t, err, table)
	}
}
