package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"escrow-service/internal/models"
	"escrow-service/internal/repository"
	"escrow-service/pkg/apperrors"
)

// FundingRequest is a confirmed payment for a gig, whichever provider reported it.
type FundingRequest struct {
	GigID         string          `json:"gigId"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	Provider      string          `json:"provider"`
	IntentID      string          `json:"intentId,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Source        string          `json:"source"`
}

type FundingResult struct {
	GigID         string          `json:"gigId"`
	ApplicationID string          `json:"applicationId"`
	WorkerID      string          `json:"workerId"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	AlreadyFunded bool            `json:"alreadyFunded"`
}

// FundingRetryQueue hands failed funding attempts to the background worker.
type FundingRetryQueue interface {
	EnqueueFundingRetry(ctx context.Context, req FundingRequest) error
}

type FundingService struct {
	Store  *repository.Store
	Wallet *WalletService
	Logger *zap.Logger
	now    func() time.Time
}

func NewFundingService(store *repository.Store, wallet *WalletService, logger *zap.Logger) *FundingService {
	return &FundingService{Store: store, Wallet: wallet, Logger: logger, now: time.Now}
}

// ApplyFunding moves a gig into escrow: gig and application marked funded,
// escrow account written, worker pending balance increased, intent closed.
// Everything commits in one transaction with the gig row locked. A gig whose
// escrow already holds money is left untouched, so repeated notifications
// for the same payment are harmless.
func (s *FundingService) ApplyFunding(ctx context.Context, req FundingRequest) (FundingResult, error) {
	result := FundingResult{GigID: req.GigID, PaidAmount: req.PaidAmount}
	if req.GigID == "" {
		return result, apperrors.Validation("gigId is required")
	}
	if !req.PaidAmount.IsPositive() {
		return result, apperrors.Validation("Paid amount must be greater than zero")
	}
	now := s.now().UTC()

	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		gig, err := tx.LockGig(ctx, req.GigID)
		if err != nil {
			return err
		}
		escrow, err := tx.FindEscrowByGig(ctx, gig.ID)
		if err != nil {
			return err
		}
		if escrow != nil && escrow.TotalAmount.IsPositive() {
			result.AlreadyFunded = true
			result.WorkerID = escrow.WorkerID
			result.ApplicationID = escrow.ApplicationID
			result.PaidAmount = escrow.TotalAmount
			return s.closeIntent(ctx, tx, req, now)
		}

		app, err := tx.FindAcceptedApplication(ctx, gig.ID)
		if err != nil {
			return err
		}
		result.ApplicationID = app.ID
		result.WorkerID = app.WorkerID

		if err := tx.UpdateGig(ctx, gig.ID, map[string]interface{}{
			"status":         models.GigStatusFunded,
			"payment_status": models.PaymentStatusInEscrow,
			"worker_id":      app.WorkerID,
			"funded_at":      now,
		}); err != nil {
			return err
		}

		appFields := map[string]interface{}{
			"payment_status": models.PaymentStatusInEscrow,
			"funded_at":      now,
		}
		if app.Status == models.ApplicationStatusAccepted {
			appFields["status"] = models.ApplicationStatusFunded
		}
		if err := tx.UpdateApplication(ctx, app.ID, appFields); err != nil {
			return err
		}

		if escrow == nil {
			err = tx.CreateEscrow(ctx, &models.EscrowAccount{
				ID:             gig.ID,
				GigID:          gig.ID,
				EmployerID:     gig.EmployerID,
				WorkerID:       app.WorkerID,
				ApplicationID:  app.ID,
				TotalAmount:    req.PaidAmount,
				ReleasedAmount: decimal.Zero,
				Status:         models.EscrowStatusActive,
				Provider:       req.Provider,
				FundedAt:       &now,
			})
		} else {
			err = tx.UpdateEscrow(ctx, escrow.ID, map[string]interface{}{
				"total_amount":   req.PaidAmount,
				"worker_id":      app.WorkerID,
				"application_id": app.ID,
				"status":         models.EscrowStatusActive,
				"provider":       req.Provider,
				"funded_at":      now,
			})
		}
		if err != nil {
			return err
		}

		if _, err := s.Wallet.adjustPending(ctx, tx, app.WorkerID, req.PaidAmount, LedgerEntry{
			Type:        models.HistoryTypeEscrowFunded,
			Description: truncate(fmt.Sprintf("Escrow funded for gig: %s", gig.Title), 255),
			Reference:   gig.ID,
		}); err != nil {
			return err
		}

		return s.closeIntent(ctx, tx, req, now)
	})
	if err != nil {
		return result, err
	}

	if result.AlreadyFunded {
		s.Logger.Info("gig already funded, skipping",
			zap.String("gig_id", req.GigID), zap.String("provider", req.Provider), zap.String("source", req.Source))
	} else {
		s.Logger.Info("gig funded",
			zap.String("gig_id", req.GigID),
			zap.String("worker_id", result.WorkerID),
			zap.String("amount", req.PaidAmount.StringFixed(2)),
			zap.String("provider", req.Provider),
			zap.String("source", req.Source))
	}
	return result, nil
}

// closeIntent marks the intent that carried the payment as funded. Without an
// explicit intent id the newest intent of the provider for the gig is used.
func (s *FundingService) closeIntent(ctx context.Context, tx *repository.Store, req FundingRequest, now time.Time) error {
	intentID := req.IntentID
	if intentID == "" {
		latest, err := tx.LatestIntentForGig(ctx, req.GigID, req.Provider)
		if err != nil || latest == nil {
			return err
		}
		intentID = latest.ID
	}
	fields := map[string]interface{}{
		"status":         models.IntentStatusFunded,
		"funded_at":      now,
		"failure_reason": "",
	}
	if req.TransactionID != "" {
		fields["transaction_id"] = req.TransactionID
	}
	return tx.UpdateIntent(ctx, intentID, fields)
}

type ReleaseResult struct {
	GigID            string          `json:"gigId"`
	ApplicationID    string          `json:"applicationId"`
	WorkerID         string          `json:"workerId"`
	GrossAmount      decimal.Decimal `json:"grossAmount"`
	NetAmount        decimal.Decimal `json:"netAmount"`
	PlatformRetained decimal.Decimal `json:"platformRetained"`
}

// releaseEscrow pays out whatever the escrow still holds, minus the worker
// commission from cfg, and closes gig, application and escrow. It must run
// inside tx; cfg has to be resolved before the transaction starts.
func (s *FundingService) releaseEscrow(ctx context.Context, tx *repository.Store, app models.GigApplication, cfg models.FeeConfig, description string) (ReleaseResult, error) {
	res := ReleaseResult{GigID: app.GigID, ApplicationID: app.ID, WorkerID: app.WorkerID}
	now := s.now().UTC()

	gig, err := tx.LockGig(ctx, app.GigID)
	if err != nil {
		return res, err
	}
	escrow, err := tx.LockEscrowByGig(ctx, gig.ID)
	if err != nil {
		return res, err
	}
	gross := escrow.Remaining()
	if !gross.IsPositive() {
		return res, apperrors.InvalidState("Escrow for gig %s is already released (status: %s)", gig.ID, escrow.Status)
	}

	breakdown := CalculateFeeBreakdown(gross, cfg)
	res.GrossAmount = gross
	res.NetAmount = breakdown.NetAmountToWorker
	res.PlatformRetained = gross.Sub(breakdown.NetAmountToWorker)

	if _, err := s.Wallet.releaseWithCommission(ctx, tx, escrow.WorkerID, gross, breakdown.NetAmountToWorker, LedgerEntry{
		Type:        models.HistoryTypeEscrowReleased,
		Description: truncate(fmt.Sprintf("%s: %s", description, gig.Title), 255),
		Reference:   gig.ID,
	}); err != nil {
		return res, err
	}

	if err := tx.UpdateEscrow(ctx, escrow.ID, map[string]interface{}{
		"released_amount": escrow.TotalAmount,
		"status":          models.EscrowStatusCompleted,
	}); err != nil {
		return res, err
	}
	if err := tx.UpdateGig(ctx, gig.ID, map[string]interface{}{
		"status":         models.GigStatusCompleted,
		"payment_status": models.PaymentStatusReleased,
		"completed_at":   now,
	}); err != nil {
		return res, err
	}
	if err := tx.UpdateApplication(ctx, app.ID, map[string]interface{}{
		"status":         models.ApplicationStatusCompleted,
		"payment_status": models.PaymentStatusReleased,
		"completed_at":   now,
	}); err != nil {
		return res, err
	}
	return res, nil
}
