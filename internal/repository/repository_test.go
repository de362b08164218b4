package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow-service/internal/config"
	"escrow-service/internal/database"
	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))
	return New(db)
}

func TestWalletDefaultsToZeroUntilWritten(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "u1", Role: models.RoleJobSeeker}))

	var initialized bool
	err := store.Transaction(ctx, func(tx *Store) error {
		w, init, err := tx.LockWallet(ctx, "u1")
		initialized = init
		assert.True(t, w.WalletBalance.IsZero())
		assert.True(t, w.PendingBalance.IsZero())
		return err
	})
	require.NoError(t, err)
	assert.False(t, initialized)

	w := models.EmptyWallet("u1")
	w.WalletBalance = decimal.RequireFromString("12.34")
	require.NoError(t, store.SaveWallet(ctx, w))

	got, err := store.GetWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "12.34", got.WalletBalance.StringFixed(2))

	u, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.TotalWithdrawn.Valid)
}

func TestSaveWalletUnknownUser(t *testing.T) {
	store := newTestStore(t)
	err := store.SaveWallet(context.Background(), models.EmptyWallet("ghost"))
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFindIntentByTransactionIDIgnoresReference(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateIntent(ctx, &models.PaymentIntent{
		ID:                "pi-1",
		GigID:             "gig-1",
		Provider:          models.ProviderTradeSafe,
		Status:            models.IntentStatusCreated,
		TransactionID:     "txn-abc",
		ProviderReference: "TNBJBTM2",
		Amount:            decimal.NewFromInt(100),
		ChargeAmount:      decimal.NewFromInt(110),
		ExpiresAt:         time.Now().UTC().Add(15 * time.Minute),
	}))

	p, err := store.FindIntentByTransactionID(ctx, "txn-abc")
	require.NoError(t, err)
	assert.Equal(t, "gig-1", p.GigID)

	_, err = store.FindIntentByTransactionID(ctx, "TNBJBTM2")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTransactionIDUniqueOnceSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	intent := func(id string, txn models.OptionalID) *models.PaymentIntent {
		return &models.PaymentIntent{
			ID: id, GigID: "gig-" + id, Provider: models.ProviderPayFast, Status: models.IntentStatusCreated,
			TransactionID: txn, Amount: decimal.NewFromInt(10), ChargeAmount: decimal.NewFromInt(11),
			ExpiresAt: time.Now().UTC().Add(15 * time.Minute),
		}
	}

	require.NoError(t, store.CreateIntent(ctx, intent("pf-1", "")))
	require.NoError(t, store.CreateIntent(ctx, intent("pf-2", "")))
	require.NoError(t, store.UpdateIntent(ctx, "pf-1", map[string]interface{}{"transaction_id": "1089250"}))

	assert.Error(t, store.CreateIntent(ctx, intent("pf-3", "1089250")))
	assert.Error(t, store.UpdateIntent(ctx, "pf-2", map[string]interface{}{"transaction_id": "1089250"}))

	got, err := store.GetIntent(ctx, "pf-2")
	require.NoError(t, err)
	assert.Empty(t, got.TransactionID.String())
}

func TestExpireIntents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, store.CreateIntent(ctx, &models.PaymentIntent{
		ID: "old", GigID: "g", Provider: models.ProviderPayFast, Status: models.IntentStatusCreated,
		Amount: decimal.NewFromInt(1), ChargeAmount: decimal.NewFromInt(1), ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, store.CreateIntent(ctx, &models.PaymentIntent{
		ID: "fresh", GigID: "h", Provider: models.ProviderPayFast, Status: models.IntentStatusCreated,
		Amount: decimal.NewFromInt(1), ChargeAmount: decimal.NewFromInt(1), ExpiresAt: now.Add(time.Hour),
	}))

	n, err := store.ExpireIntents(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, _ := store.GetIntent(ctx, "old")
	assert.Equal(t, models.IntentStatusFailed, old.Status)
	assert.Equal(t, "expired", old.FailureReason)
	fresh, _ := store.GetIntent(ctx, "fresh")
	assert.Equal(t, models.IntentStatusCreated, fresh.Status)
}

func TestFindBank(t *testing.T) {
	store := newTestStore(t)
	b, err := store.FindBank(context.Background(), "Capitec")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "CAPITEC", b.TradeSafeCode)

	b, err = store.FindBank(context.Background(), "Unknown Mutual Savings")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestActiveFeeConfigSeeded(t *testing.T) {
	store := newTestStore(t)
	cfg, err := store.ActiveFeeConfig(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "10.00", cfg.WorkerCommissionPercentage.StringFixed(2))
}
