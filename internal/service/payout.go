package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/apperr"
	"github.com/iliyamo/formation-market/internal/config"
	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/money"
	"github.com/iliyamo/formation-market/internal/repository"
)

// WithdrawInput is a payout request.
type WithdrawInput struct {
	UserID        string
	Amount        decimal.Decimal
	PaymentMethod string
	AccountNumber string
}

// WithdrawResult is the outcome of Withdraw.  NewBalance is recomputed
// from the commission rows after the payout commits.
type WithdrawResult struct {
	WithdrawalID    string          `json:"withdrawalId"`
	AmountWithdrawn decimal.Decimal `json:"amountWithdrawn"`
	Fee             decimal.Decimal `json:"fee"`
	NewBalance      decimal.Decimal `json:"newBalance"`
}

// PayoutEngine pays accumulated commission balances out to external
// accounts.  The platform operator account withdraws the platform share;
// every other account withdraws its seller share.
type PayoutEngine struct {
	ledger *repository.Ledger
	policy config.WithdrawalPolicy
	logger *zap.Logger
	now    func() time.Time
}

// NewPayoutEngine wires the engine.
func NewPayoutEngine(l *repository.Ledger, policy config.WithdrawalPolicy, logger *zap.Logger) *PayoutEngine {
	return &PayoutEngine{ledger: l, policy: policy, logger: logger.Named("payout"), now: utcNow}
}

// Fee returns ceil(amount × FeePercent / 100 + FixedFee) in whole units.
func (e *PayoutEngine) Fee(amount decimal.Decimal) decimal.Decimal {
	return money.Percent(amount, e.policy.FeePercent).Add(e.policy.FixedFee).Ceil()
}

func (e *PayoutEngine) isPlatform(userID string) bool {
	return e.policy.PlatformUserID != "" && userID == e.policy.PlatformUserID
}

// Available returns the withdrawable balance of userID recomputed from
// commissions.
func (e *PayoutEngine) Available(ctx context.Context, q repository.DBTX, userID string) (int64, error) {
	if e.isPlatform(userID) {
		return e.ledger.Commissions.AvailableForPlatform(ctx, q)
	}
	return e.ledger.Commissions.AvailableForSeller(ctx, q, userID)
}

var errInsufficient = errors.New("insufficient balance")

// Withdraw validates the request, then in one transaction re-checks the
// balance, records a paid withdrawal and consumes commission rows oldest
// first.  Nothing is written when the balance does not cover amount+fee.
func (e *PayoutEngine) Withdraw(ctx context.Context, in WithdrawInput) (WithdrawResult, error) {
	method := strings.TrimSpace(in.PaymentMethod)
	account := strings.TrimSpace(in.AccountNumber)
	switch {
	case in.UserID == "":
		return WithdrawResult{}, apperr.Validation("userId is required")
	case !money.HasValidScale(in.Amount):
		return WithdrawResult{}, apperr.Validation("amount must have at most two decimals")
	case in.Amount.LessThan(e.policy.MinAmount):
		return WithdrawResult{}, apperr.Validation("minimum withdrawal is %s", e.policy.MinAmount.StringFixed(2))
	case method == "":
		return WithdrawResult{}, apperr.Validation("paymentMethod is required")
	case account == "":
		return WithdrawResult{}, apperr.Validation("accountNumber is required")
	}
	log := e.logger.With(zap.String("user_id", in.UserID))

	if _, err := e.ledger.Users.GetByID(ctx, in.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return WithdrawResult{}, apperr.NotFound("user %s not found", in.UserID)
		}
		return WithdrawResult{}, apperr.Settlement(err, "load user")
	}

	fee := e.Fee(in.Amount)
	need := money.ToCents(in.Amount.Add(fee))
	available, err := e.Available(ctx, e.ledger.DB, in.UserID)
	if err != nil {
		return WithdrawResult{}, apperr.Settlement(err, "compute balance")
	}
	if need > available {
		withdrawalsTotal.WithLabelValues("insufficient").Inc()
		return WithdrawResult{}, insufficient(available, need)
	}

	var (
		w          model.WithdrawalRequest
		consumed   int64
		newBalance int64
	)
	err = e.ledger.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		avail, err := e.Available(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		if need > avail {
			available = avail
			return errInsufficient
		}

		now := e.now()
		w = model.WithdrawalRequest{
			UserID:        in.UserID,
			AmountCents:   money.ToCents(in.Amount),
			FeeCents:      money.ToCents(fee),
			PaymentMethod: method,
			AccountNumber: account,
			Status:        model.WithdrawalPaid,
			Note:          fmt.Sprintf("fee: %s (%s%% + %s)", fee.StringFixed(2), e.policy.FeePercent.String(), e.policy.FixedFee.StringFixed(2)),
			ProcessedAt:   &now,
		}
		if err := e.ledger.Withdrawals.CreateTx(ctx, tx, &w); err != nil {
			return err
		}

		if e.isPlatform(in.UserID) {
			consumed, err = e.consumePlatform(ctx, tx, need, w.ID)
		} else {
			consumed, err = e.consumeSeller(ctx, tx, in.UserID, need, w.ID, now)
			if err == nil {
				err = e.ledger.Users.AdjustBalanceTx(ctx, tx, in.UserID, -consumed, 0)
			}
		}
		if err != nil {
			return err
		}
		newBalance, err = e.Available(ctx, tx, in.UserID)
		return err
	})
	switch {
	case errors.Is(err, errInsufficient):
		withdrawalsTotal.WithLabelValues("insufficient").Inc()
		return WithdrawResult{}, insufficient(available, need)
	case err != nil:
		withdrawalsTotal.WithLabelValues("error").Inc()
		log.Error("withdrawal rolled back", zap.Error(err))
		return WithdrawResult{}, apperr.Settlement(err, "withdraw")
	}

	withdrawalsTotal.WithLabelValues("paid").Inc()
	withdrawnCents.Add(float64(consumed))
	log.Info("withdrawal paid",
		zap.String("withdrawal_id", w.ID),
		zap.Int64("amount_cents", w.AmountCents),
		zap.Int64("fee_cents", w.FeeCents),
		zap.Int64("consumed_cents", consumed))

	return WithdrawResult{
		WithdrawalID:    w.ID,
		AmountWithdrawn: money.FromCents(w.AmountCents),
		Fee:             money.FromCents(w.FeeCents),
		NewBalance:      money.FromCents(newBalance),
	}, nil
}

func insufficient(available, need int64) *apperr.Error {
	return apperr.Validation("insufficient balance").
		WithDetail("available", money.FromCents(available)).
		WithDetail("required", money.FromCents(need))
}

// take returns how much of left a payout consumes given what is still
// needed, according to the consumption policy.
func (e *PayoutEngine) take(left, remaining int64) int64 {
	if e.policy.Consumption == config.PolicySplit && remaining < left {
		return remaining
	}
	return left
}

func (e *PayoutEngine) consumeSeller(ctx context.Context, tx *sql.Tx, sellerID string, need int64, withdrawalID string, now time.Time) (int64, error) {
	rows, err := e.ledger.Commissions.PaidBySellerTx(ctx, tx, sellerID)
	if err != nil {
		return 0, err
	}
	var consumed int64
	for _, c := range rows {
		if consumed >= need {
			break
		}
		left := c.SellerShareCents - c.WithdrawnCents
		t := e.take(left, need-consumed)
		next := c.WithdrawnCents + t
		ok, err := e.ledger.Commissions.ConsumeTx(ctx, tx, c.ID, c.WithdrawnCents, next, next >= c.SellerShareCents, withdrawalID, now)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errCommissionMoved
		}
		consumed += t
	}
	if consumed < need {
		return 0, errInsufficient
	}
	return consumed, nil
}

func (e *PayoutEngine) consumePlatform(ctx context.Context, tx *sql.Tx, need int64, withdrawalID string) (int64, error) {
	rows, err := e.ledger.Commissions.PlatformUnwithdrawnTx(ctx, tx)
	if err != nil {
		return 0, err
	}
	var consumed int64
	for _, c := range rows {
		if consumed >= need {
			break
		}
		left := c.PlatformShareCents - c.PlatformWithdrawnCents
		t := e.take(left, need-consumed)
		ok, err := e.ledger.Commissions.ConsumePlatformTx(ctx, tx, c.ID, c.PlatformWithdrawnCents, c.PlatformWithdrawnCents+t, withdrawalID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errCommissionMoved
		}
		consumed += t
	}
	if consumed < need {
		return 0, errInsufficient
	}
	return consumed, nil
}
