package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/testutil"
)

func withTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func TestUserRepoCreateAndDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, " Seller@Example.com ", "+22177000000", "password1", model.RoleSeller, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	_, err = repo.Create(ctx, "seller@example.com", "", "password1", model.RoleSeller, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := repo.GetByEmail(ctx, "SELLER@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "+22177000000", u.Phone)
	assert.True(t, u.IsActive)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdjustBalanceFloorsAtZero(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()
	seller := testutil.InsertUser(t, db, "s@example.com", "", model.RoleSeller)

	withTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.AdjustBalanceTx(ctx, tx, seller, 8500, 1))
		require.NoError(t, repo.AdjustBalanceTx(ctx, tx, seller, -10000, -3))
		assert.ErrorIs(t, repo.AdjustBalanceTx(ctx, tx, "missing", 1, 0), ErrUserNotFound)
	})
	cents, sales := testutil.Balance(t, db, seller)
	assert.Equal(t, int64(0), cents)
	assert.Equal(t, int64(0), sales)
}

func newSale(t *testing.T, db *sql.DB, buyer, seller, product string, ref string) model.Sale {
	t.Helper()
	repo := NewSaleRepo(db)
	s := model.Sale{BuyerID: buyer, TotalCents: 10000, PaymentMode: string(model.PaymentCard), Country: "SN", TransactionRef: ref}
	withTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.CreateTx(context.Background(), tx, &s))
		require.NoError(t, repo.CreateItemsBulkTx(context.Background(), tx, []model.SaleItem{
			{SaleID: s.ID, ProductID: product, SellerID: seller, Quantity: 1, UnitPriceCents: 10000},
		}))
	})
	return s
}

func TestSaleTransitionsAreConditional(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	buyer := testutil.InsertUser(t, db, "b@example.com", "", model.RoleBuyer)
	seller := testutil.InsertUser(t, db, "s@example.com", "", model.RoleSeller)
	product := testutil.InsertProduct(t, db, seller, "Go", 10000)
	repo := NewSaleRepo(db)
	s := newSale(t, db, buyer, seller, product, "ref-1")

	got, err := repo.GetByRef(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.SalePending, got.Status)
	items, err := repo.ItemsBySale(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Delivered)

	withTx(t, db, func(tx *sql.Tx) {
		ok, err := repo.MarkPaidTx(ctx, tx, s.ID, "gw-1", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.MarkPaidTx(ctx, tx, s.ID, "gw-2", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
		require.NoError(t, repo.SetDeliveredTx(ctx, tx, s.ID, true))
	})

	ok, err := repo.MarkFailed(ctx, db, s.ID, "late")
	require.NoError(t, err)
	assert.False(t, ok, "paid sale cannot fail")

	got, err = repo.GetByRef(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, model.SalePaid, got.Status)
	require.NotNil(t, got.GatewayRef)
	assert.Equal(t, "gw-1", *got.GatewayRef)
	assert.NotNil(t, got.ConfirmedAt)

	withTx(t, db, func(tx *sql.Tx) {
		ok, err := repo.CancelTx(ctx, tx, s.ID, "changed my mind", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.CancelTx(ctx, tx, s.ID, "again", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	_, err = repo.GetByRef(ctx, "nope")
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestCommissionLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	buyer := testutil.InsertUser(t, db, "b@example.com", "", model.RoleBuyer)
	seller := testutil.InsertUser(t, db, "s@example.com", "", model.RoleSeller)
	product := testutil.InsertProduct(t, db, seller, "Go", 10000)
	s := newSale(t, db, buyer, seller, product, "ref-2")
	repo := NewCommissionRepo(db)

	c := model.Commission{SaleID: s.ID, SellerID: seller, GrossCents: 10000, SellerShareCents: 8500,
		PlatformShareCents: 1500, Percent: decimal.NewFromInt(15), Status: model.CommissionPaid}
	withTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.InsertTx(ctx, tx, &c))
	})

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	dup := c
	assert.Error(t, repo.InsertTx(ctx, tx, &dup), "one row per sale and seller")
	require.NoError(t, tx.Rollback())

	rows, err := repo.BySale(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, decimal.NewFromInt(15).Equal(rows[0].Percent))

	avail, err := repo.AvailableForSeller(ctx, db, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(8500), avail)

	withTx(t, db, func(tx *sql.Tx) {
		ok, err := repo.ConsumeTx(ctx, tx, c.ID, 0, 5000, false, "w-1", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.ConsumeTx(ctx, tx, c.ID, 0, 8500, true, "w-2", time.Now())
		require.NoError(t, err)
		assert.False(t, ok, "stale withdrawn amount")
		ok, err = repo.ConsumeTx(ctx, tx, c.ID, 5000, 8500, true, "w-2", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	avail, err = repo.AvailableForSeller(ctx, db, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(0), avail)

	platform, err := repo.AvailableForPlatform(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), platform)

	withTx(t, db, func(tx *sql.Tx) {
		ok, err := repo.ConsumePlatformTx(ctx, tx, c.ID, 0, 1500, "w-3")
		require.NoError(t, err)
		assert.True(t, ok)
	})
	platform, err = repo.AvailableForPlatform(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), platform)

	totals, err := repo.TotalsBySeller(ctx, seller)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, model.CommissionWithdrawn, totals[0].Status)
	assert.Equal(t, int64(8500), totals[0].WithdrawnCents)
}

func TestProductsByIDs(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	seller := testutil.InsertUser(t, db, "s@example.com", "", model.RoleSeller)
	repo := NewProductRepo(db)

	promo := int64(4000)
	start := time.Now().UTC().Add(-time.Hour)
	end := start.Add(48 * time.Hour)
	p := model.Product{SellerID: seller, Title: "Go", PriceCents: 5000, PromoPriceCents: &promo, PromoStartsAt: &start, PromoEndsAt: &end}
	require.NoError(t, repo.Create(ctx, &p))

	got, err := repo.GetByIDs(ctx, []string{p.ID, "missing"})
	require.NoError(t, err)
	require.Contains(t, got, p.ID)
	assert.Equal(t, int64(4000), got[p.ID].EffectivePriceCents(time.Now()))

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestLedgerWithTxRollsBackOnError(t *testing.T) {
	db := testutil.NewDB(t)
	ledger := NewLedger(db)
	ctx := context.Background()
	seller := testutil.InsertUser(t, db, "s@example.com", "", model.RoleSeller)

	boom := assert.AnError
	err := ledger.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		require.NoError(t, ledger.Users.AdjustBalanceTx(ctx, tx, seller, 100, 1))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	cents, _ := testutil.Balance(t, db, seller)
	assert.Equal(t, int64(0), cents)

	require.NoError(t, ledger.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return ledger.Users.AdjustBalanceTx(ctx, tx, seller, 100, 1)
	}))
	cents, _ = testutil.Balance(t, db, seller)
	assert.Equal(t, int64(100), cents)
}

func TestRefreshTokenLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTokenRepo(db)
	ctx := context.Background()
	user := testutil.InsertUser(t, db, "b@example.com", "", model.RoleBuyer)

	require.NoError(t, repo.StoreRefresh(ctx, user, "hash-live", time.Now().Add(time.Hour)))
	require.NoError(t, repo.StoreRefresh(ctx, user, "hash-old", time.Now().Add(-time.Minute)))
	require.NoError(t, repo.StoreRefresh(ctx, user, "hash-other", time.Now().Add(time.Hour)))

	got, err := repo.ValidateRefresh(ctx, "hash-live")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = repo.ValidateRefresh(ctx, "hash-old")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	_, err = repo.ValidateRefresh(ctx, "unknown")
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	require.NoError(t, repo.RevokeByHash(ctx, "hash-live"))
	_, err = repo.ValidateRefresh(ctx, "hash-live")
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	require.NoError(t, repo.RevokeAllForUser(ctx, user))
	_, err = repo.ValidateRefresh(ctx, "hash-other")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestCommissionCancelRejectsStaleWithdrawnAmount(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	buyer := testutil.InsertUser(t, db, "b@example.com", "", model.RoleBuyer)
	seller := testutil.InsertUser(t, db, "s@example.com", "", model.RoleSeller)
	product := testutil.InsertProduct(t, db, seller, "Go", 10000)
	s := newSale(t, db, buyer, seller, product, "ref-3")
	repo := NewCommissionRepo(db)

	c := model.Commission{SaleID: s.ID, SellerID: seller, GrossCents: 10000, SellerShareCents: 8500,
		PlatformShareCents: 1500, Percent: decimal.NewFromInt(15), Status: model.CommissionPaid}
	withTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.InsertTx(ctx, tx, &c))
	})
	snapshot := c

	// A partial payout lands after the snapshot was read.
	withTx(t, db, func(tx *sql.Tx) {
		ok, err := repo.ConsumeTx(ctx, tx, c.ID, 0, 3000, false, "w-1", time.Now())
		require.NoError(t, err)
		require.True(t, ok)
	})

	withTx(t, db, func(tx *sql.Tx) {
		ok, err := repo.CancelTx(ctx, tx, snapshot.ID, snapshot.Status, snapshot.WithdrawnCents, time.Now())
		require.NoError(t, err)
		assert.False(t, ok, "withdrawn amount moved since the read")

		ok, err = repo.CancelTx(ctx, tx, c.ID, model.CommissionPaid, 3000, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	rows, err := repo.BySale(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.CommissionCancelled, rows[0].Status)
	assert.Equal(t, int64(3000), rows[0].WithdrawnCents)
}
