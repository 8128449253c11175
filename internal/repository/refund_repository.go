package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/formation-market/internal/model"
)

// RefundRepo persists refunds created by sale cancellation.  There is at
// most one refund per sale.
type RefundRepo struct{ db *sql.DB }

func NewRefundRepo(db *sql.DB) *RefundRepo { return &RefundRepo{db: db} }

// CreateTx inserts f, assigning ID and CreatedAt.
func (r *RefundRepo) CreateTx(ctx context.Context, tx *sql.Tx, f *model.Refund) error {
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO refunds (id, sale_id, product_id, buyer_id, seller_id, amount_cents, reason, consumed_percent, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.SaleID, nullStringPtr(f.ProductID), f.BuyerID, nullStringPtr(f.SellerID),
		f.AmountCents, f.Reason, f.ConsumedPercent, f.Status, f.CreatedAt)
	return err
}

// ExistsForSaleTx reports whether the sale already has a refund.
func (r *RefundRepo) ExistsForSaleTx(ctx context.Context, q DBTX, saleID string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM refunds WHERE sale_id = ?`, saleID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetBySale returns the refund of a sale, or nil when none exists.
func (r *RefundRepo) GetBySale(ctx context.Context, saleID string) (*model.Refund, error) {
	var (
		f                   model.Refund
		productID, sellerID sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, sale_id, product_id, buyer_id, seller_id, amount_cents, reason, consumed_percent, status, created_at
		 FROM refunds WHERE sale_id = ? LIMIT 1`, saleID).Scan(
		&f.ID, &f.SaleID, &productID, &f.BuyerID, &sellerID, &f.AmountCents, &f.Reason, &f.ConsumedPercent, &f.Status, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.ProductID = strPtr(productID)
	f.SellerID = strPtr(sellerID)
	return &f, nil
}
