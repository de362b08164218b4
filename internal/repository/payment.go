package repository

import (
	"context"
	"time"

	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

var openIntentStatuses = []string{models.IntentStatusCreated, models.IntentStatusProcessing}

// FindEscrowByGig returns nil when the gig has no escrow account yet.
func (s *Store) FindEscrowByGig(ctx context.Context, gigID string) (*models.EscrowAccount, error) {
	var e models.EscrowAccount
	err := s.conn(ctx).Where("gig_id = ?", gigID).First(&e).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to read escrow account")
	}
	return &e, nil
}

func (s *Store) LockEscrowByGig(ctx context.Context, gigID string) (models.EscrowAccount, error) {
	var e models.EscrowAccount
	if err := s.forUpdate(ctx).Where("gig_id = ?", gigID).First(&e).Error; err != nil {
		return e, notFound(err, "escrow account for gig %s not found", gigID)
	}
	return e, nil
}

func (s *Store) CreateEscrow(ctx context.Context, e *models.EscrowAccount) error {
	if err := s.conn(ctx).Create(e).Error; err != nil {
		return apperrors.Internal(err, "failed to create escrow account")
	}
	return nil
}

func (s *Store) UpdateEscrow(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := s.conn(ctx).Model(&models.EscrowAccount{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return apperrors.Internal(err, "failed to update escrow account")
	}
	return nil
}

func (s *Store) CreateIntent(ctx context.Context, p *models.PaymentIntent) error {
	if err := s.conn(ctx).Create(p).Error; err != nil {
		return apperrors.Internal(err, "failed to create payment intent")
	}
	return nil
}

func (s *Store) GetIntent(ctx context.Context, id string) (models.PaymentIntent, error) {
	var p models.PaymentIntent
	if err := s.conn(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return p, notFound(err, "payment intent %s not found", id)
	}
	return p, nil
}

// FindIntentByTransactionID is the only way back from a provider transaction
// to the gig. Provider reference numbers are never used for this lookup.
func (s *Store) FindIntentByTransactionID(ctx context.Context, transactionID string) (models.PaymentIntent, error) {
	var p models.PaymentIntent
	if transactionID == "" {
		return p, apperrors.NotFound("payment tracking record not found")
	}
	err := s.conn(ctx).Where("transaction_id = ?", transactionID).Order("created_at desc").First(&p).Error
	if err != nil {
		return p, notFound(err, "payment tracking record not found")
	}
	return p, nil
}

// LatestIntentForGig returns the newest intent of a provider for gigID, or nil.
func (s *Store) LatestIntentForGig(ctx context.Context, gigID, provider string) (*models.PaymentIntent, error) {
	var p models.PaymentIntent
	err := s.conn(ctx).Where("gig_id = ? AND provider = ?", gigID, provider).Order("created_at desc").First(&p).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to read payment intent")
	}
	return &p, nil
}

func (s *Store) UpdateIntent(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := s.conn(ctx).Model(&models.PaymentIntent{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return apperrors.Internal(err, "failed to update payment intent")
	}
	return nil
}

// SupersedeOpenIntents fails every open intent for gigID so at most one stays open.
func (s *Store) SupersedeOpenIntents(ctx context.Context, gigID string) (int64, error) {
	res := s.conn(ctx).Model(&models.PaymentIntent{}).
		Where("gig_id = ? AND status IN ?", gigID, openIntentStatuses).
		Updates(map[string]interface{}{"status": models.IntentStatusFailed, "failure_reason": "superseded"})
	if res.Error != nil {
		return 0, apperrors.Internal(res.Error, "failed to supersede payment intents")
	}
	return res.RowsAffected, nil
}

// ListOpenIntents returns unexpired open intents of a provider.
func (s *Store) ListOpenIntents(ctx context.Context, provider string, now time.Time) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	err := s.conn(ctx).
		Where("provider = ? AND status IN ? AND expires_at > ?", provider, openIntentStatuses, now).
		Order("created_at asc").
		Find(&intents).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list payment intents")
	}
	return intents, nil
}

// ExpireIntents fails open intents whose deadline passed.
func (s *Store) ExpireIntents(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.PaymentIntent{}).
		Where("status IN ? AND expires_at <= ?", openIntentStatuses, now).
		Updates(map[string]interface{}{"status": models.IntentStatusFailed, "failure_reason": "expired"})
	if res.Error != nil {
		return 0, apperrors.Internal(res.Error, "failed to expire payment intents")
	}
	return res.RowsAffected, nil
}
