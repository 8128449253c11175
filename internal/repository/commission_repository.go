package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/formation-market/internal/model"
)

const commissionColumns = "id,sale_id,seller_id,gross_cents,seller_share_cents,platform_share_cents,commission_percent,status,withdrawn_cents,platform_withdrawn_cents,withdrawal_id,created_at,processed_at"

// CommissionRepo provides data access to the commissions table.  Rows are
// unique per (sale_id, seller_id).  Mutations are conditional on the
// status (and, for payouts, the consumed amount) observed by the caller.
type CommissionRepo struct{ db *sql.DB }

func NewCommissionRepo(db *sql.DB) *CommissionRepo { return &CommissionRepo{db: db} }

func scanCommissions(rows *sql.Rows) ([]model.Commission, error) {
	defer rows.Close()
	var out []model.Commission
	for rows.Next() {
		var (
			c           model.Commission
			status      string
			withdrawal  sql.NullString
			processedAt sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.SaleID, &c.SellerID, &c.GrossCents, &c.SellerShareCents, &c.PlatformShareCents,
			&c.Percent, &status, &c.WithdrawnCents, &c.PlatformWithdrawnCents, &withdrawal, &c.CreatedAt, &processedAt); err != nil {
			return nil, err
		}
		c.Status = model.CommissionStatus(status)
		c.WithdrawalID = strPtr(withdrawal)
		c.ProcessedAt = timePtr(processedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// BySale lists the commissions of a sale ordered by seller.
func (r *CommissionRepo) BySale(ctx context.Context, saleID string) ([]model.Commission, error) {
	return r.BySaleTx(ctx, r.db, saleID)
}

// BySaleTx is BySale on an existing transaction or handle.
func (r *CommissionRepo) BySaleTx(ctx context.Context, q DBTX, saleID string) ([]model.Commission, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+commissionColumns+" FROM commissions WHERE sale_id = ? ORDER BY seller_id", saleID)
	if err != nil {
		return nil, err
	}
	return scanCommissions(rows)
}

// InsertTx creates a commission row, assigning ID and CreatedAt.  A
// second row for the same (sale, seller) fails on the unique key.
func (r *CommissionRepo) InsertTx(ctx context.Context, tx *sql.Tx, c *model.Commission) error {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	var processed any
	if c.ProcessedAt != nil {
		processed = c.ProcessedAt.UTC()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO commissions (id, sale_id, seller_id, gross_cents, seller_share_cents, platform_share_cents,
		   commission_percent, status, withdrawn_cents, platform_withdrawn_cents, created_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		c.ID, c.SaleID, c.SellerID, c.GrossCents, c.SellerShareCents, c.PlatformShareCents,
		c.Percent.StringFixed(2), string(c.Status), c.CreatedAt, processed)
	return err
}

// MarkPaidTx moves a pending commission to paid.
func (r *CommissionRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id string, at time.Time) (bool, error) {
	return affected(tx.ExecContext(ctx,
		`UPDATE commissions SET status = 'paid', processed_at = ? WHERE id = ? AND status = 'pending'`,
		at.UTC(), id))
}

// CancelTx moves a commission from prev to cancelled.  It reports false
// when the status or the withdrawn amount no longer match what the caller
// read, so a payout that raced in is never debited twice.
func (r *CommissionRepo) CancelTx(ctx context.Context, tx *sql.Tx, id string, prev model.CommissionStatus, withdrawn int64, at time.Time) (bool, error) {
	return affected(tx.ExecContext(ctx,
		`UPDATE commissions SET status = 'cancelled', processed_at = ?
		 WHERE id = ? AND status = ? AND withdrawn_cents = ?`,
		at.UTC(), id, string(prev), withdrawn))
}

// PaidBySellerTx lists the seller's paid rows with an unwithdrawn share,
// oldest first.  This is the payout consumption order.
func (r *CommissionRepo) PaidBySellerTx(ctx context.Context, q DBTX, sellerID string) ([]model.Commission, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+commissionColumns+` FROM commissions
		 WHERE seller_id = ? AND status = 'paid' AND withdrawn_cents < seller_share_cents
		 ORDER BY created_at, id`, sellerID)
	if err != nil {
		return nil, err
	}
	return scanCommissions(rows)
}

// PlatformUnwithdrawnTx lists rows whose platform share is not fully paid
// out, oldest first.  Rows whose seller share was withdrawn still carry a
// platform share.
func (r *CommissionRepo) PlatformUnwithdrawnTx(ctx context.Context, q DBTX) ([]model.Commission, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+commissionColumns+` FROM commissions
		 WHERE status IN ('paid', 'withdrawn') AND platform_withdrawn_cents < platform_share_cents
		 ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return scanCommissions(rows)
}

// ConsumeTx advances the withdrawn amount of a paid row from prev to next
// and marks it withdrawn when exhausted is set.  It reports false when
// another payout touched the row first.
func (r *CommissionRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, id string, prev, next int64, exhausted bool, withdrawalID string, at time.Time) (bool, error) {
	status := string(model.CommissionPaid)
	if exhausted {
		status = string(model.CommissionWithdrawn)
	}
	return affected(tx.ExecContext(ctx,
		`UPDATE commissions SET withdrawn_cents = ?, status = ?, withdrawal_id = ?, processed_at = ?
		 WHERE id = ? AND status = 'paid' AND withdrawn_cents = ?`,
		next, status, withdrawalID, at.UTC(), id, prev))
}

// ConsumePlatformTx advances the platform withdrawn amount from prev to next.
func (r *CommissionRepo) ConsumePlatformTx(ctx context.Context, tx *sql.Tx, id string, prev, next int64, withdrawalID string) (bool, error) {
	return affected(tx.ExecContext(ctx,
		`UPDATE commissions SET platform_withdrawn_cents = ?, withdrawal_id = ?
		 WHERE id = ? AND status IN ('paid', 'withdrawn') AND platform_withdrawn_cents = ?`,
		next, withdrawalID, id, prev))
}

// AvailableForSeller sums the withdrawable seller share of paid rows.
func (r *CommissionRepo) AvailableForSeller(ctx context.Context, q DBTX, sellerID string) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(seller_share_cents - withdrawn_cents), 0)
		 FROM commissions WHERE seller_id = ? AND status = 'paid'`, sellerID).Scan(&total)
	return total, err
}

// AvailableForPlatform sums the withdrawable platform share.
func (r *CommissionRepo) AvailableForPlatform(ctx context.Context, q DBTX) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(platform_share_cents - platform_withdrawn_cents), 0)
		 FROM commissions WHERE status IN ('paid', 'withdrawn')`).Scan(&total)
	return total, err
}

// ListBySeller pages through a seller's commissions, newest first.  An
// empty status lists every status.
func (r *CommissionRepo) ListBySeller(ctx context.Context, sellerID string, status model.CommissionStatus, limit, offset int) ([]model.Commission, error) {
	query := "SELECT " + commissionColumns + " FROM commissions WHERE seller_id = ?"
	args := []any{sellerID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanCommissions(rows)
}

// StatusTotal aggregates a seller's commissions of one status.
type StatusTotal struct {
	Status           model.CommissionStatus
	Count            int64
	SellerShareCents int64
	WithdrawnCents   int64
}

// TotalsBySeller groups a seller's commissions by status.
func (r *CommissionRepo) TotalsBySeller(ctx context.Context, sellerID string) ([]StatusTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(seller_share_cents), 0), COALESCE(SUM(withdrawn_cents), 0)
		 FROM commissions WHERE seller_id = ? GROUP BY status ORDER BY status`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusTotal
	for rows.Next() {
		var (
			t      StatusTotal
			status string
		)
		if err := rows.Scan(&status, &t.Count, &t.SellerShareCents, &t.WithdrawnCents); err != nil {
			return nil, err
		}
		t.Status = model.CommissionStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}
