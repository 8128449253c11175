package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/formation-market/internal/model"
)

const saleColumns = "id,buyer_id,total_cents,payment_mode,country,transaction_ref,gateway_ref,status,failure_reason,cancel_reason,created_at,confirmed_at,cancelled_at"

// SaleRepo provides data access to the sales and sale_items tables.
// Every status change is conditional on the current status so that two
// concurrent callers cannot both win the same transition; the caller
// inspects the returned bool to learn whether it did.
type SaleRepo struct{ db *sql.DB }

func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{db: db} }

// CreateTx inserts a pending sale, assigning ID, Status and CreatedAt.
func (r *SaleRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Sale) error {
	s.ID = uuid.NewString()
	s.Status = model.SalePending
	s.CreatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sales (id, buyer_id, total_cents, payment_mode, country, transaction_ref, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.BuyerID, s.TotalCents, s.PaymentMode, s.Country, s.TransactionRef, string(s.Status), s.CreatedAt)
	return err
}

// CreateItemsBulkTx inserts the sale lines in one statement.
func (r *SaleRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, items []model.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO sale_items (id, sale_id, product_id, seller_id, quantity, unit_price_cents, delivered) VALUES `
	args := make([]any, 0, len(items)*7)
	for i := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		items[i].ID = uuid.NewString()
		it := items[i]
		args = append(args, it.ID, it.SaleID, it.ProductID, it.SellerID, it.Quantity, it.UnitPriceCents, it.Delivered)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func scanSale(row interface{ Scan(...any) error }) (model.Sale, error) {
	var (
		s                        model.Sale
		status                   sql.NullString
		gwRef, failure, cancel   sql.NullString
		confirmedAt, cancelledAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.BuyerID, &s.TotalCents, &s.PaymentMode, &s.Country, &s.TransactionRef,
		&gwRef, &status, &failure, &cancel, &s.CreatedAt, &confirmedAt, &cancelledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrSaleNotFound
	}
	if err != nil {
		return s, err
	}
	s.Status = model.SaleStatus(status.String)
	if s.Status == "" {
		s.Status = model.SalePending
	}
	s.GatewayRef = strPtr(gwRef)
	s.FailureReason = strPtr(failure)
	s.CancelReason = strPtr(cancel)
	s.ConfirmedAt = timePtr(confirmedAt)
	s.CancelledAt = timePtr(cancelledAt)
	return s, nil
}

// GetByRef returns the sale with the given transaction reference.
func (r *SaleRepo) GetByRef(ctx context.Context, ref string) (model.Sale, error) {
	return r.GetByRefTx(ctx, r.db, ref)
}

// GetByRefTx is GetByRef on an existing transaction or handle.
func (r *SaleRepo) GetByRefTx(ctx context.Context, q DBTX, ref string) (model.Sale, error) {
	return scanSale(q.QueryRowContext(ctx,
		"SELECT "+saleColumns+" FROM sales WHERE transaction_ref = ? LIMIT 1", ref))
}

// ItemsBySale lists the lines of a sale.
func (r *SaleRepo) ItemsBySale(ctx context.Context, saleID string) ([]model.SaleItem, error) {
	return r.ItemsBySaleTx(ctx, r.db, saleID)
}

// ItemsBySaleTx is ItemsBySale on an existing transaction or handle.
func (r *SaleRepo) ItemsBySaleTx(ctx context.Context, q DBTX, saleID string) ([]model.SaleItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, sale_id, product_id, seller_id, quantity, unit_price_cents, delivered
		 FROM sale_items WHERE sale_id = ? ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.SaleItem
	for rows.Next() {
		var it model.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.SellerID, &it.Quantity, &it.UnitPriceCents, &it.Delivered); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkPaidTx moves a pending (or legacy NULL status) sale to paid.  It
// reports false when the sale was not pending, e.g. already settled by a
// concurrent confirmation.
func (r *SaleRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, saleID, gatewayRef string, at time.Time) (bool, error) {
	return affected(tx.ExecContext(ctx,
		`UPDATE sales SET status = 'paid', confirmed_at = ?, gateway_ref = COALESCE(?, gateway_ref)
		 WHERE id = ? AND (status IN ('pending', '') OR status IS NULL)`,
		at.UTC(), nullString(gatewayRef), saleID))
}

// MarkFailed moves a pending sale to failed and records the reason.
func (r *SaleRepo) MarkFailed(ctx context.Context, q DBTX, saleID, reason string) (bool, error) {
	return affected(q.ExecContext(ctx,
		`UPDATE sales SET status = 'failed', failure_reason = ?
		 WHERE id = ? AND (status IN ('pending', '') OR status IS NULL)`,
		nullString(reason), saleID))
}

// CancelTx moves a pending or paid sale to cancelled.
func (r *SaleRepo) CancelTx(ctx context.Context, tx *sql.Tx, saleID, reason string, at time.Time) (bool, error) {
	return affected(tx.ExecContext(ctx,
		`UPDATE sales SET status = 'cancelled', cancel_reason = ?, cancelled_at = ?
		 WHERE id = ? AND (status IN ('pending', 'paid', '') OR status IS NULL)`,
		reason, at.UTC(), saleID))
}

// SetDeliveredTx flips the delivered flag of every line of the sale.
func (r *SaleRepo) SetDeliveredTx(ctx context.Context, tx *sql.Tx, saleID string, delivered bool) error {
	_, err := tx.ExecContext(ctx, `UPDATE sale_items SET delivered = ? WHERE sale_id = ?`, delivered, saleID)
	return err
}

// SetGatewayRef records the gateway reference of a sale still awaiting
// confirmation.
func (r *SaleRepo) SetGatewayRef(ctx context.Context, saleID, gatewayRef string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sales SET gateway_ref = ? WHERE id = ?`, nullString(gatewayRef), saleID)
	return err
}
