package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"escrow-service/internal/config"
	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

type tradeSafeAPIMock struct {
	mock.Mock
}

func (m *tradeSafeAPIMock) CreateToken(ctx context.Context, in TradeSafeTokenInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *tradeSafeAPIMock) CreateTransaction(ctx context.Context, in TradeSafeTransactionInput) (*TradeSafeTransaction, error) {
	args := m.Called(ctx, in)
	txn, _ := args.Get(0).(*TradeSafeTransaction)
	return txn, args.Error(1)
}

func (m *tradeSafeAPIMock) CheckoutLink(ctx context.Context, transactionID string) (string, error) {
	args := m.Called(ctx, transactionID)
	return args.String(0), args.Error(1)
}

func (m *tradeSafeAPIMock) GetTransaction(ctx context.Context, transactionID string) (*TradeSafeTransaction, error) {
	args := m.Called(ctx, transactionID)
	txn, _ := args.Get(0).(*TradeSafeTransaction)
	return txn, args.Error(1)
}

func newTradeSafe(f *fixture, api TradeSafeAPI) *TradeSafeService {
	cfg := config.TradeSafeConfig{AgentToken: "agent-token", Sandbox: true, IntentTTL: 15 * time.Minute}
	return NewTradeSafeService(f.store, api, f.funding, f.fees, f.helper, cfg, f.logger)
}

// initTradeSafe runs Initialize against a mock that returns transaction txn-abc
// with provider reference TNBJBTM2.
func initTradeSafe(t *testing.T, f *fixture, api *tradeSafeAPIMock, svc *TradeSafeService, gig models.Gig, app models.GigApplication) *TradeSafeCheckout {
	t.Helper()
	api.On("CreateToken", mock.Anything, mock.MatchedBy(func(in TradeSafeTokenInput) bool { return in.BankAccount == nil })).
		Return("buyer-token", nil).Once()
	api.On("CreateToken", mock.Anything, mock.MatchedBy(func(in TradeSafeTokenInput) bool { return in.BankAccount != nil })).
		Return("seller-token", nil).Once()
	api.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(in TradeSafeTransactionInput) bool {
		return in.BuyerToken == "buyer-token" &&
			in.SellerToken == "seller-token" &&
			in.AgentToken == "agent-token" &&
			in.AgentFeePct.Equal(dec("10")) &&
			in.Value.Equal(dec("1000"))
	})).Return(&TradeSafeTransaction{
		ID:          "txn-abc",
		Reference:   "TNBJBTM2",
		State:       "CREATED",
		Allocations: []TradeSafeAllocation{{ID: "alloc-1", State: "CREATED"}},
	}, nil).Once()
	api.On("CheckoutLink", mock.Anything, "txn-abc").Return("https://pay.tradesafe.dev/checkout/txn-abc", nil).Once()

	require.NoError(t, f.store.DB().Model(&models.User{}).Where("id = ?", app.WorkerID).Updates(map[string]interface{}{
		"bank_name":      "Capitec Bank",
		"account_number": "1234567890",
		"branch_code":    "470010",
		"account_holder": "Thandi Mokoena",
		"account_type":   "savings",
	}).Error)

	checkout, err := svc.Initialize(f.ctx, InitTradeSafeDTO{
		GigID:      gig.ID,
		Amount:     dec("1000"),
		Title:      gig.Title,
		WorkerID:   app.WorkerID,
		EmployerID: gig.EmployerID,
	})
	require.NoError(t, err)
	return checkout
}

func TestTradeSafeInitialize(t *testing.T) {
	f := newFixture(t)
	gig, app := f.seedGig(t, "1000")
	api := new(tradeSafeAPIMock)
	svc := newTradeSafe(f, api)

	checkout := initTradeSafe(t, f, api, svc, gig, app)
	api.AssertExpectations(t)

	assert.Equal(t, "txn-abc", checkout.TransactionID)
	assert.Equal(t, "alloc-1", checkout.AllocationID)
	assert.Equal(t, "https://pay.tradesafe.dev/checkout/txn-abc", checkout.CheckoutURL)

	intent, err := f.store.FindIntentByTransactionID(f.ctx, "txn-abc")
	require.NoError(t, err)
	assert.Equal(t, gig.ID, intent.GigID)
	assert.Equal(t, "TNBJBTM2", intent.ProviderReference)
	assert.Equal(t, models.ProviderTradeSafe, intent.Provider)

	worker, err := f.store.GetUser(f.ctx, app.WorkerID)
	require.NoError(t, err)
	assert.Equal(t, "seller-token", worker.TradeSafeToken)

	var bankArg TradeSafeTokenInput
	for _, c := range api.Calls {
		if in, ok := c.Arguments.Get(1).(TradeSafeTokenInput); ok && in.BankAccount != nil {
			bankArg = in
		}
	}
	require.NotNil(t, bankArg.BankAccount)
	assert.Equal(t, "CAPITEC", bankArg.BankAccount.Bank)
	assert.Equal(t, "SAVINGS", bankArg.BankAccount.AccountType)
}

func TestTradeSafeInitializeRejectsWrongWorker(t *testing.T) {
	f := newFixture(t)
	gig, _ := f.seedGig(t, "1000")
	svc := newTradeSafe(f, new(tradeSafeAPIMock))

	_, err := svc.Initialize(f.ctx, InitTradeSafeDTO{
		GigID: gig.ID, Amount: dec("1000"), Title: "x", WorkerID: "someone-else", EmployerID: gig.EmployerID,
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Initialize(f.ctx, InitTradeSafeDTO{GigID: gig.ID, Amount: dec("0"), EmployerID: gig.EmployerID})
	assert.True(t, apperrors.IsValidation(err))
}

func TestTradeSafeVerifyFundsByTransactionID(t *testing.T) {
	f := newFixture(t)
	gig, app := f.seedGig(t, "1000")
	api := new(tradeSafeAPIMock)
	svc := newTradeSafe(f, api)
	initTradeSafe(t, f, api, svc, gig, app)

	api.On("GetTransaction", mock.Anything, "txn-abc").
		Return(&TradeSafeTransaction{ID: "txn-abc", Reference: "TNBJBTM2", State: "FUNDS_RECEIVED"}, nil).Once()

	res, err := svc.Verify(f.ctx, "txn-abc")
	require.NoError(t, err)
	assert.Equal(t, gig.ID, res.GigID)
	assert.Equal(t, models.IntentStatusFunded, res.Status)
	assertAmount(t, "1000.00", f.walletOf(t, app.WorkerID).PendingBalance)

	// a funded intent answers without asking the provider again
	res, err = svc.Verify(f.ctx, "txn-abc")
	require.NoError(t, err)
	assert.Equal(t, gig.ID, res.GigID)
	assertAmount(t, "1000.00", f.walletOf(t, app.WorkerID).PendingBalance)
	api.AssertExpectations(t)
}

func TestTradeSafeVerifyNeverUsesProviderReference(t *testing.T) {
	f := newFixture(t)
	gig, app := f.seedGig(t, "1000")
	api := new(tradeSafeAPIMock)
	svc := newTradeSafe(f, api)
	initTradeSafe(t, f, api, svc, gig, app)

	_, err := svc.Verify(f.ctx, "TNBJBTM2")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "payment tracking record not found")
}

func TestTradeSafeVerifyProviderStates(t *testing.T) {
	f := newFixture(t)
	gig, app := f.seedGig(t, "1000")
	api := new(tradeSafeAPIMock)
	svc := newTradeSafe(f, api)
	initTradeSafe(t, f, api, svc, gig, app)

	api.On("GetTransaction", mock.Anything, "txn-abc").Return(nil, nil).Once()
	_, err := svc.Verify(f.ctx, "txn-abc")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "transaction not found at provider")

	api.On("GetTransaction", mock.Anything, "txn-abc").
		Return(&TradeSafeTransaction{ID: "txn-abc", State: "CREATED"}, nil).Once()
	res, err := svc.Verify(f.ctx, "txn-abc")
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusProcessing, res.Status)
	assert.Equal(t, "CREATED", res.State)
	assert.True(t, f.walletOf(t, app.WorkerID).PendingBalance.IsZero())
}

func TestTradeSafeVerifyExpiredIntent(t *testing.T) {
	f := newFixture(t)
	gig, app := f.seedGig(t, "1000")
	api := new(tradeSafeAPIMock)
	svc := newTradeSafe(f, api)
	initTradeSafe(t, f, api, svc, gig, app)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err := svc.Verify(f.ctx, "txn-abc")
	assert.True(t, apperrors.IsInvalidState(err))
	api.AssertNotCalled(t, "GetTransaction", mock.Anything, mock.Anything)
}

func TestTradeSafeReconcilePending(t *testing.T) {
	f := newFixture(t)
	gig, app := f.seedGig(t, "1000")
	api := new(tradeSafeAPIMock)
	svc := newTradeSafe(f, api)
	initTradeSafe(t, f, api, svc, gig, app)

	api.On("GetTransaction", mock.Anything, "txn-abc").
		Return(&TradeSafeTransaction{ID: "txn-abc", State: "FUNDS_DEPOSITED"}, nil).Once()

	funded, err := svc.ReconcilePending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, funded)

	g, err := f.store.GetGig(f.ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusFunded, g.Status)

	funded, err = svc.ReconcilePending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, funded)
}
