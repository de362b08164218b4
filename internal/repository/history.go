package repository

import (
	"context"
	"strings"
	"time"

	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

func (s *Store) AppendHistory(ctx context.Context, h *models.PaymentHistory) error {
	if err := s.conn(ctx).Create(h).Error; err != nil {
		return apperrors.Internal(err, "failed to write payment history")
	}
	return nil
}

// ListHistory pages through a user's history, newest first.
func (s *Store) ListHistory(ctx context.Context, userID string, page, limit int) ([]models.PaymentHistory, int64, error) {
	var (
		rows  []models.PaymentHistory
		total int64
	)
	query := s.conn(ctx).Model(&models.PaymentHistory{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "failed to count payment history")
	}
	offset := (page - 1) * limit
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "failed to read payment history")
	}
	return rows, total, nil
}

// ActiveFeeConfig reads at most one active row. It returns nil when none exists.
func (s *Store) ActiveFeeConfig(ctx context.Context) (*models.FeeConfig, error) {
	var rows []models.FeeConfig
	if err := s.conn(ctx).Where("is_active = ?", true).Order("updated_at desc").Limit(1).Find(&rows).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to read fee configuration")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *Store) CreateFeeConfig(ctx context.Context, cfg *models.FeeConfig) error {
	if err := s.conn(ctx).Create(cfg).Error; err != nil {
		return apperrors.Internal(err, "failed to create fee configuration")
	}
	return nil
}

func (s *Store) CreateCallbackLog(ctx context.Context, l *models.CallbackLog) error {
	if err := s.conn(ctx).Create(l).Error; err != nil {
		return apperrors.Internal(err, "failed to write callback log")
	}
	return nil
}

// FindBank matches a free-form bank name against slug, name or universal branch code.
func (s *Store) FindBank(ctx context.Context, name string) (*models.Bank, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, nil
	}
	var banks []models.Bank
	if err := s.conn(ctx).Where("status = ?", 1).Find(&banks).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to read banks")
	}
	for i, b := range banks {
		if key == b.Slug || key == strings.ToLower(b.Name) || key == b.BranchCode ||
			strings.Contains(strings.ToLower(b.Name), key) {
			return &banks[i], nil
		}
	}
	return nil, nil
}

// ArchiveCallbackLogs moves up to limit callback logs created before cutoff into
// the archive table and returns how many were moved.
func (s *Store) ArchiveCallbackLogs(ctx context.Context, cutoff time.Time, limit int, archivedAt time.Time) (int, error) {
	var moved int
	err := s.Transaction(ctx, func(tx *Store) error {
		var old []models.CallbackLog
		if err := tx.conn(ctx).Where("created_at < ?", cutoff).Order("id").Limit(limit).Find(&old).Error; err != nil {
			return apperrors.Internal(err, "failed to read callback logs")
		}
		if len(old) == 0 {
			return nil
		}

		archived := make([]models.ArchivedCallbackLog, 0, len(old))
		ids := make([]uint, 0, len(old))
		for _, l := range old {
			archived = append(archived, models.ArchivedCallbackLog{
				ID:            l.ID,
				Provider:      l.Provider,
				RequestType:   l.RequestType,
				GigID:         l.GigID,
				TransactionID: l.TransactionID,
				Request:       l.Request,
				Response:      l.Response,
				Processed:     l.Processed,
				CreatedAt:     l.CreatedAt,
				ArchivedAt:    archivedAt,
			})
			ids = append(ids, l.ID)
		}

		if err := tx.conn(ctx).Create(&archived).Error; err != nil {
			return apperrors.Internal(err, "failed to archive callback logs")
		}
		if err := tx.conn(ctx).Delete(&models.CallbackLog{}, ids).Error; err != nil {
			return apperrors.Internal(err, "failed to delete archived callback logs")
		}
		moved = len(old)
		return nil
	})
	return moved, err
}
