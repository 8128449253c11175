package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/formation-market/internal/model"
)

// WithdrawalRepo persists payout requests.
type WithdrawalRepo struct{ db *sql.DB }

func NewWithdrawalRepo(db *sql.DB) *WithdrawalRepo { return &WithdrawalRepo{db: db} }

// CreateTx inserts w, assigning ID and RequestedAt.
func (r *WithdrawalRepo) CreateTx(ctx context.Context, tx *sql.Tx, w *model.WithdrawalRequest) error {
	w.ID = uuid.NewString()
	w.RequestedAt = time.Now().UTC()
	var processed any
	if w.ProcessedAt != nil {
		processed = w.ProcessedAt.UTC()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO withdrawal_requests (id, user_id, amount_cents, fee_cents, payment_method, account_number, status, note, requested_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.AmountCents, w.FeeCents, w.PaymentMethod, w.AccountNumber, w.Status, w.Note, w.RequestedAt, processed)
	return err
}

// ListByUser returns a user's withdrawals, newest first.
func (r *WithdrawalRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.WithdrawalRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, fee_cents, payment_method, account_number, status, note, requested_at, processed_at
		 FROM withdrawal_requests WHERE user_id = ? ORDER BY requested_at DESC, id LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WithdrawalRequest
	for rows.Next() {
		var (
			w         model.WithdrawalRequest
			processed sql.NullTime
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.AmountCents, &w.FeeCents, &w.PaymentMethod, &w.AccountNumber,
			&w.Status, &w.Note, &w.RequestedAt, &processed); err != nil {
			return nil, err
		}
		w.ProcessedAt = timePtr(processed)
		out = append(out, w)
	}
	return out, rows.Err()
}
