package repository

import (
	"context"

	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

// fundableApplicationStatuses are the states an application can be in once
// the employer accepted it. Funding retries must still find it after it moved on.
var fundableApplicationStatuses = []string{
	models.ApplicationStatusAccepted,
	models.ApplicationStatusFunded,
	models.ApplicationStatusCompletionRequested,
	models.ApplicationStatusCompletionDisputed,
	models.ApplicationStatusCompleted,
}

func (s *Store) CreateGig(ctx context.Context, g *models.Gig) error {
	if err := s.conn(ctx).Create(g).Error; err != nil {
		return apperrors.Internal(err, "failed to create gig")
	}
	return nil
}

func (s *Store) GetGig(ctx context.Context, id string) (models.Gig, error) {
	var g models.Gig
	if err := s.conn(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		return g, notFound(err, "gig %s not found", id)
	}
	return g, nil
}

func (s *Store) LockGig(ctx context.Context, id string) (models.Gig, error) {
	var g models.Gig
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		return g, notFound(err, "gig %s not found", id)
	}
	return g, nil
}

func (s *Store) UpdateGig(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := s.conn(ctx).Model(&models.Gig{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return apperrors.Internal(err, "failed to update gig")
	}
	return nil
}

func (s *Store) CreateApplication(ctx context.Context, a *models.GigApplication) error {
	if err := s.conn(ctx).Create(a).Error; err != nil {
		return apperrors.Internal(err, "failed to create application")
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (models.GigApplication, error) {
	var a models.GigApplication
	if err := s.conn(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return a, notFound(err, "application %s not found", id)
	}
	return a, nil
}

func (s *Store) LockApplication(ctx context.Context, id string) (models.GigApplication, error) {
	var a models.GigApplication
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return a, notFound(err, "application %s not found", id)
	}
	return a, nil
}

// FindAcceptedApplication returns the application the employer accepted for gigID.
func (s *Store) FindAcceptedApplication(ctx context.Context, gigID string) (models.GigApplication, error) {
	var a models.GigApplication
	err := s.conn(ctx).
		Where("gig_id = ? AND status IN ?", gigID, fundableApplicationStatuses).
		Order("created_at asc").
		First(&a).Error
	if err != nil {
		return a, notFound(err, "no accepted application for gig %s", gigID)
	}
	return a, nil
}

func (s *Store) UpdateApplication(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := s.conn(ctx).Model(&models.GigApplication{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return apperrors.Internal(err, "failed to update application")
	}
	return nil
}

func (s *Store) ListApplicationsByStatus(ctx context.Context, status string) ([]models.GigApplication, error) {
	var apps []models.GigApplication
	err := s.conn(ctx).Where("status = ?", status).Order("completion_disputed_at desc").Find(&apps).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list applications")
	}
	return apps, nil
}
