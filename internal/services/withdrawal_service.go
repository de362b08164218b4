package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"escrow-service/internal/config"
	"escrow-service/internal/models"
	"escrow-service/internal/repository"
	"escrow-service/internal/validation"
	"escrow-service/pkg/apperrors"
	"escrow-service/pkg/common"
)

const approvedNote = "Approved by admin"

type WithdrawalService struct {
	Store  *repository.Store
	Wallet *WalletService
	Helper *HelperService
	Limits config.WithdrawalLimits
	Logger *zap.Logger
	now    func() time.Time
}

func NewWithdrawalService(store *repository.Store, wallet *WalletService, helper *HelperService, limits config.WithdrawalLimits, logger *zap.Logger) *WithdrawalService {
	return &WithdrawalService{Store: store, Wallet: wallet, Helper: helper, Limits: limits, Logger: logger, now: time.Now}
}

type RequestWithdrawalDTO struct {
	UserID string                 `json:"-" validate:"required"`
	Amount decimal.Decimal        `json:"amount"`
	Bank   validation.BankAccount `json:"bankDetails"`
}

// RequestWithdrawal debits the wallet and files a pending request in one transaction.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, dto RequestWithdrawalDTO) (*models.WithdrawalRequest, error) {
	if err := validation.ValidateAmount(dto.Amount, s.Limits.Min, s.Limits.Max); err != nil {
		return nil, err
	}
	bank, err := validation.ValidateBankDetails(dto.Bank)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	req := &models.WithdrawalRequest{
		ID:     common.NewID(),
		UserID: dto.UserID,
		Amount: dto.Amount,
		Status: models.WithdrawalStatusPending,
		BankDetails: models.BankDetails{
			BankName:      bank.BankName,
			AccountNumber: validation.MaskAccountNumber(bank.AccountNumber),
			BranchCode:    bank.BranchCode,
			AccountHolder: bank.AccountHolder,
			AccountType:   bank.AccountType,
		},
		Reference:   "WD" + common.GenerateTrxNo(),
		RequestedAt: now,
	}

	err = s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.LockUser(ctx, dto.UserID); err != nil {
			return err
		}
		if s.Limits.DailyMax.IsPositive() {
			today, err := tx.SumRequestedSince(ctx, dto.UserID, startOfDay)
			if err != nil {
				return err
			}
			if err := validation.ValidateDailyLimit(today, dto.Amount, s.Limits.DailyMax); err != nil {
				return err
			}
		}
		if _, err := s.Wallet.debit(ctx, tx, dto.UserID, dto.Amount, LedgerEntry{
			Type:        models.HistoryTypeWithdrawalRequested,
			Description: fmt.Sprintf("Withdrawal to %s %s", bank.BankName, req.BankDetails.AccountNumber),
			Reference:   req.ID,
			Status:      models.HistoryStatusPending,
		}); err != nil {
			return err
		}
		return tx.CreateWithdrawal(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("withdrawal requested",
		zap.String("withdrawal_id", req.ID),
		zap.String("user_id", req.UserID),
		zap.String("amount", req.Amount.StringFixed(2)))
	return req, nil
}

// ApproveWithdrawal finalizes a pending request. No wallet funds move.
func (s *WithdrawalService) ApproveWithdrawal(ctx context.Context, withdrawalID, adminID string) (*models.WithdrawalRequest, error) {
	var out models.WithdrawalRequest
	now := s.now().UTC()

	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		w, err := tx.LockWithdrawal(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if w.Status != models.WithdrawalStatusPending {
			return apperrors.InvalidState("Cannot approve withdrawal with status: %s", w.Status)
		}
		if err := tx.UpdateWithdrawal(ctx, w.ID, map[string]interface{}{
			"status":       models.WithdrawalStatusCompleted,
			"approved_by":  adminID,
			"completed_at": now,
			"admin_notes":  approvedNote,
		}); err != nil {
			return err
		}
		if err := s.Helper.SaveHistory(ctx, tx, HistoryData{
			UserID:      w.UserID,
			Type:        models.HistoryTypeWithdrawalCompleted,
			Amount:      w.Amount.Neg(),
			Description: fmt.Sprintf("Withdrawal to %s completed", w.BankDetails.BankName),
			Reference:   w.ID,
		}); err != nil {
			return err
		}
		w.Status = models.WithdrawalStatusCompleted
		w.ApprovedBy = adminID
		w.CompletedAt = &now
		w.AdminNotes = approvedNote
		out = w
		return nil
	})
	if err != nil {
		apperrors.LogError(s.Logger, err, "approve withdrawal failed", zap.String("withdrawal_id", withdrawalID))
		return nil, err
	}

	s.Logger.Info("withdrawal approved",
		zap.String("withdrawal_id", out.ID),
		zap.String("admin_id", adminID),
		zap.String("amount", out.Amount.StringFixed(2)))
	return &out, nil
}

// RejectWithdrawal fails a pending request and refunds the full amount to the wallet.
func (s *WithdrawalService) RejectWithdrawal(ctx context.Context, withdrawalID, adminID, reason string) (*models.WithdrawalRequest, error) {
	reason = validation.SanitizeText(reason)
	if reason == "" {
		return nil, apperrors.Validation("Rejection reason is required")
	}
	var out models.WithdrawalRequest

	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		w, err := tx.LockWithdrawal(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if w.Status != models.WithdrawalStatusPending {
			return apperrors.InvalidState("Cannot reject withdrawal with status: %s", w.Status)
		}
		if _, err := s.Wallet.credit(ctx, tx, w.UserID, w.Amount, LedgerEntry{
			Type:        models.HistoryTypeWithdrawalRefund,
			Description: truncate("Withdrawal refund: "+reason, 255),
			Reference:   w.ID,
		}); err != nil {
			return err
		}
		failure := "Admin rejected: " + reason
		if err := tx.UpdateWithdrawal(ctx, w.ID, map[string]interface{}{
			"status":         models.WithdrawalStatusFailed,
			"rejected_by":    adminID,
			"failure_reason": failure,
			"admin_notes":    reason,
		}); err != nil {
			return err
		}
		w.Status = models.WithdrawalStatusFailed
		w.RejectedBy = adminID
		w.FailureReason = failure
		w.AdminNotes = reason
		out = w
		return nil
	})
	if err != nil {
		apperrors.LogError(s.Logger, err, "reject withdrawal failed", zap.String("withdrawal_id", withdrawalID))
		return nil, err
	}

	s.Logger.Info("withdrawal rejected",
		zap.String("withdrawal_id", out.ID),
		zap.String("admin_id", adminID),
		zap.String("amount", out.Amount.StringFixed(2)))
	return &out, nil
}

var withdrawalStatuses = map[string]bool{
	models.WithdrawalStatusPending:    true,
	models.WithdrawalStatusProcessing: true,
	models.WithdrawalStatusCompleted:  true,
	models.WithdrawalStatusFailed:     true,
}

// GetWithdrawalRequests lists requests newest first. An empty status lists all.
func (s *WithdrawalService) GetWithdrawalRequests(ctx context.Context, status string) ([]models.WithdrawalRequest, error) {
	if status != "" && !withdrawalStatuses[status] {
		return nil, apperrors.Validation("Unknown withdrawal status: %s", status)
	}
	return s.Store.ListWithdrawals(ctx, status)
}

func (s *WithdrawalService) FetchUserWithdrawals(ctx context.Context, userID string, pendingOnly bool) ([]models.WithdrawalRequest, error) {
	return s.Store.ListUserWithdrawals(ctx, userID, pendingOnly)
}
