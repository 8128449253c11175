// Package testutil provides an in-memory database seeded with the
// production schema, plus small fixtures used across package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/formation-market/internal/database"
)

// NewDB returns a migrated SQLite database closed at test cleanup.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, zaptest.NewLogger(t)))
	return db
}

// InsertUser creates an active account and returns its id.  The password
// hash is a placeholder; tests that log in register through the handler.
func InsertUser(t testing.TB, db *sql.DB, email, phone, role string) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	var ph any
	if phone != "" {
		ph = phone
	}
	_, err := db.Exec(
		`INSERT INTO users (id, email, phone, password_hash, role, is_active, balance_cents, sale_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, TRUE, 0, 0, ?, ?)`,
		id, email, ph, "x", role, now, now)
	require.NoError(t, err)
	return id
}

// InsertProduct lists a formation for sellerID at priceCents.
func InsertProduct(t testing.TB, db *sql.DB, sellerID, title string, priceCents int64) string {
	t.Helper()
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO products (id, seller_id, title, price_cents, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, sellerID, title, priceCents, now, now)
	require.NoError(t, err)
	return id
}

// Balance reads the seller balance projection and settled sale count.
func Balance(t testing.TB, db *sql.DB, userID string) (cents, sales int64) {
	t.Helper()
	require.NoError(t, db.QueryRow(`SELECT balance_cents, sale_count FROM users WHERE id = ?`, userID).Scan(&cents, &sales))
	return cents, sales
}
