package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

func (s *Store) CreateWithdrawal(ctx context.Context, w *models.WithdrawalRequest) error {
	if err := s.conn(ctx).Create(w).Error; err != nil {
		return apperrors.Internal(err, "failed to create withdrawal request")
	}
	return nil
}

func (s *Store) GetWithdrawal(ctx context.Context, id string) (models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := s.conn(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return w, notFound(err, "Withdrawal request not found")
	}
	return w, nil
}

func (s *Store) LockWithdrawal(ctx context.Context, id string) (models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return w, notFound(err, "Withdrawal request not found")
	}
	return w, nil
}

func (s *Store) UpdateWithdrawal(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := s.conn(ctx).Model(&models.WithdrawalRequest{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return apperrors.Internal(err, "failed to update withdrawal request")
	}
	return nil
}

// ListWithdrawals returns requests newest first, optionally filtered by status.
func (s *Store) ListWithdrawals(ctx context.Context, status string) ([]models.WithdrawalRequest, error) {
	var list []models.WithdrawalRequest
	query := s.conn(ctx).Order("requested_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to list withdrawal requests")
	}
	return list, nil
}

func (s *Store) ListUserWithdrawals(ctx context.Context, userID string, pendingOnly bool) ([]models.WithdrawalRequest, error) {
	var list []models.WithdrawalRequest
	query := s.conn(ctx).Where("user_id = ?", userID).Order("requested_at desc")
	if pendingOnly {
		query = query.Where("status = ?", models.WithdrawalStatusPending)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to list withdrawal requests")
	}
	return list, nil
}

// SumRequestedSince totals the user's non-failed withdrawal requests made at or after since.
func (s *Store) SumRequestedSince(ctx context.Context, userID string, since time.Time) (decimal.Decimal, error) {
	var list []models.WithdrawalRequest
	err := s.conn(ctx).Select("amount").
		Where("user_id = ? AND requested_at >= ? AND status <> ?", userID, since, models.WithdrawalStatusFailed).
		Find(&list).Error
	if err != nil {
		return decimal.Zero, apperrors.Internal(err, "failed to sum withdrawals")
	}
	total := decimal.Zero
	for _, w := range list {
		total = total.Add(w.Amount)
	}
	return total, nil
}
