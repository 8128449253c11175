package repository

import (
	"context"
	"database/sql"
	"time"
)

// txTimeout bounds every ledger transaction.
const txTimeout = 5 * time.Second

// Ledger groups the repositories that make up the ledger store and owns
// transaction management for the settlement, reversal and payout engines.
type Ledger struct {
	DB          *sql.DB
	Users       *UserRepo
	Products    *ProductRepo
	Sales       *SaleRepo
	Commissions *CommissionRepo
	Withdrawals *WithdrawalRepo
	Refunds     *RefundRepo
}

// NewLedger wires every repository to db.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{
		DB:          db,
		Users:       NewUserRepo(db),
		Products:    NewProductRepo(db),
		Sales:       NewSaleRepo(db),
		Commissions: NewCommissionRepo(db),
		Withdrawals: NewWithdrawalRepo(db),
		Refunds:     NewRefundRepo(db),
	}
}

// WithTx runs fn inside one transaction and commits when fn returns nil.
// Any error, including a failed commit, rolls everything back.  fn must
// only use tx: on SQLite the pool holds a single connection.
func (l *Ledger) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
