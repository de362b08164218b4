package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

func TestCreditAndDebitWallet(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, models.RoleJobSeeker)

	w, err := f.wallet.CreditWallet(f.ctx, u.ID, dec("250.00"), LedgerEntry{Description: "Top up"})
	require.NoError(t, err)
	assertAmount(t, "250.00", w.WalletBalance)
	assertAmount(t, "250.00", w.TotalEarnings)

	w, err = f.wallet.DebitWalletAtomic(f.ctx, u.ID, dec("100.50"), LedgerEntry{})
	require.NoError(t, err)
	assertAmount(t, "149.50", w.WalletBalance)
	assertAmount(t, "100.50", w.TotalWithdrawn)

	page, err := f.wallet.GetPaymentHistory(f.ctx, u.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Count)
}

func TestDebitInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, models.RoleJobSeeker)
	f.seedWallet(t, u.ID, "50.00", "0")

	_, err := f.wallet.DebitWalletAtomic(f.ctx, u.ID, dec("50.01"), LedgerEntry{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInsufficientBalance, apperrors.CodeOf(err))
	assertAmount(t, "50.00", f.walletOf(t, u.ID).WalletBalance)
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, models.RoleJobSeeker)

	_, err := f.wallet.DebitWalletAtomic(f.ctx, u.ID, dec("0"), LedgerEntry{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, models.RoleJobSeeker)
	f.seedWallet(t, u.ID, "1000.00", "0")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.wallet.DebitWalletAtomic(f.ctx, u.ID, dec("600.00"), LedgerEntry{})
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.Equal(t, apperrors.CodeInsufficientBalance, apperrors.CodeOf(err))
		}
	}
	assert.Equal(t, 1, failed)
	assertAmount(t, "400.00", f.walletOf(t, u.ID).WalletBalance)
}

func TestUpdatePendingBalanceCannotGoNegative(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, models.RoleJobSeeker)
	f.seedWallet(t, u.ID, "0", "100.00")

	_, err := f.wallet.UpdatePendingBalance(f.ctx, u.ID, dec("-150.00"), LedgerEntry{})
	assert.Equal(t, apperrors.CodeInsufficientPendingBalance, apperrors.CodeOf(err))

	w, err := f.wallet.UpdatePendingBalance(f.ctx, u.ID, dec("-40.00"), LedgerEntry{})
	require.NoError(t, err)
	assertAmount(t, "60.00", w.PendingBalance)
}

func TestMovePendingToWallet(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, models.RoleJobSeeker)
	f.seedWallet(t, u.ID, "10.00", "300.00")

	w, err := f.wallet.MovePendingToWallet(f.ctx, u.ID, dec("300.00"), LedgerEntry{})
	require.NoError(t, err)
	assertAmount(t, "0.00", w.PendingBalance)
	assertAmount(t, "310.00", w.WalletBalance)
	assertAmount(t, "300.00", w.TotalEarnings)

	_, err = f.wallet.MovePendingToWallet(f.ctx, u.ID, dec("0.01"), LedgerEntry{})
	assert.Equal(t, apperrors.CodeInsufficientPendingBalance, apperrors.CodeOf(err))
}

func TestReleaseEscrowWithCommission(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, models.RoleJobSeeker)
	f.seedWallet(t, u.ID, "0", "320.00")

	w, err := f.wallet.ReleaseEscrowWithCommission(f.ctx, u.ID, dec("320.00"), dec("288.00"), LedgerEntry{})
	require.NoError(t, err)
	assertAmount(t, "0.00", w.PendingBalance)
	assertAmount(t, "288.00", w.WalletBalance)
	assertAmount(t, "288.00", w.TotalEarnings)

	_, err = f.wallet.ReleaseEscrowWithCommission(f.ctx, u.ID, dec("10.00"), dec("20.00"), LedgerEntry{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetWalletBalanceUnknownUser(t *testing.T) {
	f := newFixture(t)
	w := f.wallet.GetWalletBalance(f.ctx, "missing")
	assert.Equal(t, "missing", w.UserID)
	assert.True(t, w.WalletBalance.IsZero())
	assert.True(t, w.PendingBalance.IsZero())
}

func TestInitializeWalletOnlyOnce(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, models.RoleJobSeeker)

	created, err := f.wallet.InitializeWallet(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.wallet.InitializeWallet(f.ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, created)

	page, err := f.wallet.GetPaymentHistory(f.ctx, u.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Count)
}
