package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"escrow-service/internal/config"
	"escrow-service/internal/database"
	"escrow-service/internal/models"
	"escrow-service/internal/repository"
	"escrow-service/pkg/common"
)

type fixture struct {
	ctx     context.Context
	store   *repository.Store
	logger  *zap.Logger
	helper  *HelperService
	wallet  *WalletService
	fees    *FeeService
	funding *FundingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))

	store := repository.New(db)
	logger := zap.NewNop()
	helper := NewHelperService(store, logger)
	wallet := NewWalletService(store, helper, logger)
	return &fixture{
		ctx:     context.Background(),
		store:   store,
		logger:  logger,
		helper:  helper,
		wallet:  wallet,
		fees:    NewFeeService(store, logger),
		funding: NewFundingService(store, wallet, logger),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) seedUser(t *testing.T, role string) models.User {
	t.Helper()
	u := models.User{
		ID:          common.NewID(),
		Email:       "user-" + common.GenerateTrxNo() + "@example.com",
		DisplayName: "Thandi Mokoena",
		Role:        role,
	}
	require.NoError(t, f.store.CreateUser(f.ctx, &u))
	return u
}

func (f *fixture) seedWallet(t *testing.T, userID, balance, pending string) {
	t.Helper()
	w := models.EmptyWallet(userID)
	w.WalletBalance = dec(balance)
	w.PendingBalance = dec(pending)
	require.NoError(t, f.store.SaveWallet(f.ctx, w))
}

// seedGig creates an employer, a worker, a gig with the given budget and an
// accepted application for it.
func (f *fixture) seedGig(t *testing.T, budget string) (models.Gig, models.GigApplication) {
	t.Helper()
	employer := f.seedUser(t, models.RoleEmployer)
	worker := f.seedUser(t, models.RoleJobSeeker)

	gig := models.Gig{
		ID:            common.NewID(),
		EmployerID:    employer.ID,
		Title:         "Logo design",
		Description:   "Design a logo for a coffee shop",
		Budget:        dec(budget),
		Status:        models.GigStatusAssigned,
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	require.NoError(t, f.store.CreateGig(f.ctx, &gig))

	app := models.GigApplication{
		ID:            common.NewID(),
		GigID:         gig.ID,
		WorkerID:      worker.ID,
		EmployerID:    employer.ID,
		Status:        models.ApplicationStatusAccepted,
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	require.NoError(t, f.store.CreateApplication(f.ctx, &app))
	return gig, app
}

func (f *fixture) fundGig(t *testing.T, gig models.Gig) FundingResult {
	t.Helper()
	res, err := f.funding.ApplyFunding(f.ctx, FundingRequest{
		GigID:      gig.ID,
		PaidAmount: gig.Budget,
		Provider:   models.ProviderPayFast,
		Source:     "test",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) walletOf(t *testing.T, userID string) models.Wallet {
	t.Helper()
	w, err := f.store.GetWallet(f.ctx, userID)
	require.NoError(t, err)
	return w
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Equal(t, want, got.StringFixed(2))
}
