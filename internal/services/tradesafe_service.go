package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"escrow-service/internal/config"
	"escrow-service/internal/models"
	"escrow-service/internal/repository"
	"escrow-service/pkg/apperrors"
	"escrow-service/pkg/common"
)

// Provider states in which the buyer's money is committed to the escrow.
var tradeSafeFundedStates = map[string]bool{
	"FUNDS_DEPOSITED": true,
	"FUNDS_RECEIVED":  true,
	"INITIATED":       true,
	"COMPLETED":       true,
}

type TradeSafeService struct {
	Store   *repository.Store
	API     TradeSafeAPI
	Funding *FundingService
	Fees    *FeeService
	Helper  *HelperService
	Config  config.TradeSafeConfig
	Logger  *zap.Logger
	now     func() time.Time
}

func NewTradeSafeService(
	store *repository.Store,
	api TradeSafeAPI,
	funding *FundingService,
	fees *FeeService,
	helper *HelperService,
	cfg config.TradeSafeConfig,
	logger *zap.Logger,
) *TradeSafeService {
	return &TradeSafeService{
		Store:   store,
		API:     api,
		Funding: funding,
		Fees:    fees,
		Helper:  helper,
		Config:  cfg,
		Logger:  logger,
		now:     time.Now,
	}
}

type InitTradeSafeDTO struct {
	GigID       string          `json:"gigId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description"`
	WorkerID    string          `json:"workerId" validate:"required"`
	WorkerToken string          `json:"workerToken"`
	EmployerID  string          `json:"-" validate:"required"`
}

type TradeSafeCheckout struct {
	CheckoutURL   string `json:"checkoutUrl"`
	TransactionID string `json:"transactionId"`
	AllocationID  string `json:"allocationId"`
}

// Initialize creates the provider transaction for a gig and records the
// intent that maps the provider transaction id back to the gig.
func (s *TradeSafeService) Initialize(ctx context.Context, dto InitTradeSafeDTO) (*TradeSafeCheckout, error) {
	if !dto.Amount.IsPositive() {
		return nil, apperrors.Validation("Amount must be greater than zero")
	}
	amount := dto.Amount.Round(2)

	gig, err := s.Store.GetGig(ctx, dto.GigID)
	if err != nil {
		return nil, err
	}
	if gig.EmployerID != dto.EmployerID {
		return nil, apperrors.Forbidden("Only the gig owner can fund this gig")
	}
	if gig.IsFunded() {
		return nil, apperrors.InvalidState("Gig is already funded (status: %s)", gig.Status)
	}
	app, err := s.Store.FindAcceptedApplication(ctx, gig.ID)
	if err != nil {
		return nil, err
	}
	if app.WorkerID != dto.WorkerID {
		return nil, apperrors.Validation("Worker %s is not the accepted applicant for this gig", dto.WorkerID)
	}

	employer, err := s.Store.GetUser(ctx, dto.EmployerID)
	if err != nil {
		return nil, err
	}
	buyerToken, err := s.ensureToken(ctx, employer, "", false)
	if err != nil {
		return nil, err
	}
	worker, err := s.Store.GetUser(ctx, dto.WorkerID)
	if err != nil {
		return nil, err
	}
	sellerToken, err := s.ensureToken(ctx, worker, dto.WorkerToken, true)
	if err != nil {
		return nil, err
	}

	cfg, _ := s.Fees.ActiveConfig(ctx)
	txn, err := s.API.CreateTransaction(ctx, TradeSafeTransactionInput{
		Title:         truncate(dto.Title, 255),
		Description:   truncate(dto.Description, 1000),
		Value:         amount,
		BuyerToken:    buyerToken,
		SellerToken:   sellerToken,
		AgentToken:    s.Config.AgentToken,
		AgentFeePct:   cfg.WorkerCommissionPercentage,
		DaysToDeliver: 7,
		DaysToInspect: 7,
	})
	if err != nil {
		return nil, err
	}
	checkoutURL, err := s.API.CheckoutLink(ctx, txn.ID)
	if err != nil {
		return nil, err
	}

	allocationID := ""
	if len(txn.Allocations) > 0 {
		allocationID = txn.Allocations[0].ID
	}
	ttl := s.Config.IntentTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	intent := &models.PaymentIntent{
		ID:                common.NewID(),
		GigID:             gig.ID,
		ApplicationID:     app.ID,
		EmployerID:        gig.EmployerID,
		WorkerID:          app.WorkerID,
		Amount:            amount,
		ChargeAmount:      amount,
		Provider:          models.ProviderTradeSafe,
		Status:            models.IntentStatusCreated,
		TransactionID:     models.OptionalID(txn.ID),
		ProviderReference: txn.Reference,
		AllocationID:      allocationID,
		CheckoutURL:       checkoutURL,
		ExpiresAt:         s.now().UTC().Add(ttl),
	}
	if err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.SupersedeOpenIntents(ctx, gig.ID); err != nil {
			return err
		}
		return tx.CreateIntent(ctx, intent)
	}); err != nil {
		return nil, err
	}

	s.Logger.Info("tradesafe transaction created",
		zap.String("gig_id", gig.ID),
		zap.String("transaction_id", txn.ID),
		zap.String("reference", txn.Reference),
		zap.String("amount", amount.StringFixed(2)))

	return &TradeSafeCheckout{CheckoutURL: checkoutURL, TransactionID: txn.ID, AllocationID: allocationID}, nil
}

// ensureToken returns the user's provider token, creating and storing one when missing.
func (s *TradeSafeService) ensureToken(ctx context.Context, user models.User, supplied string, withBank bool) (string, error) {
	if supplied != "" {
		return supplied, nil
	}
	if user.TradeSafeToken != "" {
		return user.TradeSafeToken, nil
	}

	given, family := splitName(user.DisplayName)
	in := TradeSafeTokenInput{GivenName: given, FamilyName: family, Email: user.Email}
	if withBank && user.HasBankDetails() {
		bank, err := s.Store.FindBank(ctx, user.BankName)
		if err != nil {
			return "", err
		}
		if bank != nil && bank.TradeSafeCode != "" {
			accountType := strings.ToUpper(user.AccountType)
			if accountType == "" {
				accountType = "CHEQUE"
			}
			in.BankAccount = &TradeSafeBankAccount{
				AccountNumber: user.AccountNumber,
				AccountType:   accountType,
				Bank:          bank.TradeSafeCode,
			}
		} else {
			s.Logger.Warn("bank not mapped for tradesafe, creating token without payout account",
				zap.String("user_id", user.ID), zap.String("bank_name", user.BankName))
		}
	}

	token, err := s.API.CreateToken(ctx, in)
	if err != nil {
		return "", err
	}
	if err := s.Store.SetTradeSafeToken(ctx, user.ID, token); err != nil {
		return "", err
	}
	return token, nil
}

func splitName(display string) (string, string) {
	parts := strings.Fields(display)
	switch len(parts) {
	case 0:
		return "User", "User"
	case 1:
		return parts[0], parts[0]
	}
	return parts[0], strings.Join(parts[1:], " ")
}

type TradeSafeVerifyResult struct {
	GigID         string `json:"gigId"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	State         string `json:"state,omitempty"`
}

// Verify settles a TradeSafe payment given only the provider transaction id.
func (s *TradeSafeService) Verify(ctx context.Context, transactionID string) (*TradeSafeVerifyResult, error) {
	intent, err := s.Store.FindIntentByTransactionID(ctx, strings.TrimSpace(transactionID))
	if err != nil {
		return nil, err
	}
	result := &TradeSafeVerifyResult{GigID: intent.GigID, TransactionID: intent.TransactionID.String()}

	if intent.Status == models.IntentStatusFunded {
		result.Status = models.IntentStatusFunded
		return result, nil
	}
	if intent.Status == models.IntentStatusFailed {
		return result, apperrors.InvalidState("Payment %s is no longer valid (%s)", intent.TransactionID, intent.FailureReason)
	}
	if intent.Expired(s.now().UTC()) {
		return result, apperrors.InvalidState("Payment %s has expired", intent.TransactionID)
	}

	state, funded, err := s.settle(ctx, intent, models.CallbackTypeVerify)
	if err != nil {
		return result, err
	}
	result.State = state
	if funded {
		result.Status = models.IntentStatusFunded
	} else {
		result.Status = models.IntentStatusProcessing
	}
	return result, nil
}

// settle asks the provider for the transaction state and funds the gig when money is moving.
func (s *TradeSafeService) settle(ctx context.Context, intent models.PaymentIntent, source string) (string, bool, error) {
	log := s.Logger.With(zap.String("gig_id", intent.GigID), zap.Stringer("transaction_id", intent.TransactionID))

	txn, err := s.API.GetTransaction(ctx, intent.TransactionID.String())
	if err != nil {
		s.logCallback(ctx, intent, source, nil, err.Error(), false)
		return "", false, err
	}
	if txn == nil {
		s.logCallback(ctx, intent, source, nil, "not found", false)
		return "", false, apperrors.NotFound("transaction not found at provider")
	}
	state := strings.ToUpper(txn.State)

	if !tradeSafeFundedStates[state] {
		if intent.Status == models.IntentStatusCreated {
			if err := s.Store.UpdateIntent(ctx, intent.ID, map[string]interface{}{
				"status": models.IntentStatusProcessing,
			}); err != nil {
				return state, false, err
			}
		}
		log.Debug("tradesafe transaction not funded yet", zap.String("state", state))
		s.logCallback(ctx, intent, source, txn, "state "+state, false)
		return state, false, nil
	}

	_, err = s.Funding.ApplyFunding(ctx, FundingRequest{
		GigID:         intent.GigID,
		PaidAmount:    intent.Amount,
		Provider:      models.ProviderTradeSafe,
		IntentID:      intent.ID,
		TransactionID: intent.TransactionID.String(),
		Source:        source,
	})
	s.logCallback(ctx, intent, source, txn, "state "+state, err == nil)
	if err != nil {
		apperrors.LogError(log, err, "funding failed")
		return state, false, err
	}
	return state, true, nil
}

func (s *TradeSafeService) logCallback(ctx context.Context, intent models.PaymentIntent, source string, txn *TradeSafeTransaction, response string, processed bool) {
	s.Helper.LogCallback(ctx, CallbackData{
		Provider:      models.ProviderTradeSafe,
		RequestType:   source,
		GigID:         intent.GigID,
		TransactionID: intent.TransactionID.String(),
		Request:       txn,
		Response:      response,
		Processed:     processed,
	})
}

// ReconcilePending polls every open TradeSafe intent once. It returns how many were funded.
func (s *TradeSafeService) ReconcilePending(ctx context.Context) (int, error) {
	intents, err := s.Store.ListOpenIntents(ctx, models.ProviderTradeSafe, s.now().UTC())
	if err != nil {
		return 0, err
	}
	funded := 0
	for _, intent := range intents {
		if ctx.Err() != nil {
			return funded, ctx.Err()
		}
		_, ok, err := s.settle(ctx, intent, models.CallbackTypeReconcile)
		if err != nil {
			s.Logger.Warn("reconcile failed",
				zap.Stringer("transaction_id", intent.TransactionID), zap.Error(err))
			continue
		}
		if ok {
			funded++
		}
	}
	if funded > 0 {
		s.Logger.Info("reconciled tradesafe payments", zap.Int("funded", funded), zap.Int("checked", len(intents)))
	}
	return funded, nil
}
