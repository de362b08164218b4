package services

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"escrow-service/internal/models"
	"escrow-service/internal/repository"
	"escrow-service/internal/validation"
	"escrow-service/pkg/apperrors"
)

const (
	minDisputeReason    = 10
	maxDisputeReason    = 1000
	minResolutionNotes  = 20
	releaseDescription  = "Payment released for gig"
	resolvedDescription = "Dispute resolved in favor of worker"
)

// DisputeService drives the completion handshake between worker and employer
// and the admin adjudication of disputed completions.
type DisputeService struct {
	Store   *repository.Store
	Funding *FundingService
	Fees    *FeeService
	Logger  *zap.Logger
	now     func() time.Time
}

func NewDisputeService(store *repository.Store, funding *FundingService, fees *FeeService, logger *zap.Logger) *DisputeService {
	return &DisputeService{Store: store, Funding: funding, Fees: fees, Logger: logger, now: time.Now}
}

type DisputeResolution struct {
	ApplicationID string         `json:"applicationId"`
	GigID         string         `json:"gigId"`
	Resolution    string         `json:"resolution"`
	ResolvedBy    string         `json:"resolvedBy"`
	Release       *ReleaseResult `json:"release,omitempty"`
}

// RequestCompletion is the worker telling the employer the work is done.
func (s *DisputeService) RequestCompletion(ctx context.Context, applicationID, workerID string) (*models.GigApplication, error) {
	var out models.GigApplication
	now := s.now().UTC()
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.WorkerID != workerID {
			return apperrors.Forbidden("Only the assigned worker can request completion")
		}
		if app.Status != models.ApplicationStatusFunded {
			return apperrors.InvalidState("Cannot request completion with status: %s", app.Status)
		}
		if err := tx.UpdateApplication(ctx, app.ID, map[string]interface{}{
			"status":                  models.ApplicationStatusCompletionRequested,
			"completion_requested_at": now,
		}); err != nil {
			return err
		}
		app.Status = models.ApplicationStatusCompletionRequested
		app.CompletionRequestedAt = &now
		out = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("completion requested", zap.String("application_id", out.ID), zap.String("gig_id", out.GigID))
	return &out, nil
}

// ApproveCompletion releases the escrow to the worker at the employer's request.
func (s *DisputeService) ApproveCompletion(ctx context.Context, applicationID, employerID string) (*ReleaseResult, error) {
	cfg, _ := s.Fees.ActiveConfig(ctx)
	var res ReleaseResult
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := s.requireEmployer(ctx, tx, app, employerID); err != nil {
			return err
		}
		if app.Status != models.ApplicationStatusCompletionRequested {
			return apperrors.InvalidState("Cannot approve completion with status: %s", app.Status)
		}
		res, err = s.Funding.releaseEscrow(ctx, tx, app, cfg, releaseDescription)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logRelease("completion approved", res)
	return &res, nil
}

// DisputeCompletion rejects a completion request and freezes the escrow until an admin decides.
func (s *DisputeService) DisputeCompletion(ctx context.Context, applicationID, employerID, reason string) (*models.GigApplication, error) {
	reason = validation.SanitizeText(reason)
	if n := utf8.RuneCountInString(reason); n < minDisputeReason || n > maxDisputeReason {
		return nil, apperrors.Validation("Dispute reason must be between %d and %d characters", minDisputeReason, maxDisputeReason)
	}
	var out models.GigApplication
	now := s.now().UTC()

	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := s.requireEmployer(ctx, tx, app, employerID); err != nil {
			return err
		}
		if app.Status != models.ApplicationStatusCompletionRequested {
			return apperrors.InvalidState("Cannot dispute completion with status: %s", app.Status)
		}
		escrow, err := tx.LockEscrowByGig(ctx, app.GigID)
		if err != nil {
			return err
		}
		if err := tx.UpdateApplication(ctx, app.ID, map[string]interface{}{
			"status":                    models.ApplicationStatusCompletionDisputed,
			"completion_disputed_at":    now,
			"completion_dispute_reason": reason,
			"dispute_resolved_at":       nil,
			"dispute_resolved_by":       "",
			"dispute_resolution":        "",
			"dispute_resolution_notes":  "",
		}); err != nil {
			return err
		}
		if err := tx.UpdateEscrow(ctx, escrow.ID, map[string]interface{}{"status": models.EscrowStatusDisputed}); err != nil {
			return err
		}
		app.Status = models.ApplicationStatusCompletionDisputed
		app.CompletionDisputedAt = &now
		app.CompletionDisputeReason = reason
		app.DisputeResolvedAt = nil
		app.DisputeResolvedBy = ""
		app.DisputeResolution = ""
		app.DisputeResolutionNotes = ""
		out = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("completion disputed", zap.String("application_id", out.ID), zap.String("gig_id", out.GigID))
	return &out, nil
}

// ResolveInFavorOfWorker releases the escrow minus commission and closes the dispute.
func (s *DisputeService) ResolveInFavorOfWorker(ctx context.Context, applicationID, adminID, notes string) (*DisputeResolution, error) {
	notes, err := validation.ValidateNotes(notes, minResolutionNotes)
	if err != nil {
		return nil, err
	}
	cfg, _ := s.Fees.ActiveConfig(ctx)
	out := &DisputeResolution{ApplicationID: applicationID, Resolution: models.ResolutionWorker, ResolvedBy: adminID}
	now := s.now().UTC()

	err = s.Store.Transaction(ctx, func(tx *repository.Store) error {
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := requireOpenDispute(app); err != nil {
			return err
		}
		res, err := s.Funding.releaseEscrow(ctx, tx, app, cfg, resolvedDescription)
		if err != nil {
			return err
		}
		out.GigID = app.GigID
		out.Release = &res
		return tx.UpdateApplication(ctx, app.ID, map[string]interface{}{
			"dispute_resolved_at":      now,
			"dispute_resolved_by":      adminID,
			"dispute_resolution":       models.ResolutionWorker,
			"dispute_resolution_notes": notes,
		})
	})
	if err != nil {
		apperrors.LogError(s.Logger, err, "resolve dispute failed",
			zap.String("application_id", applicationID), zap.String("favor", models.ResolutionWorker))
		return nil, err
	}
	s.logRelease("dispute resolved in favor of worker", *out.Release)
	return out, nil
}

// ResolveInFavorOfEmployer sends the worker back to work. The escrow stays
// funded and no balance changes.
func (s *DisputeService) ResolveInFavorOfEmployer(ctx context.Context, applicationID, adminID, notes string) (*DisputeResolution, error) {
	notes, err := validation.ValidateNotes(notes, minResolutionNotes)
	if err != nil {
		return nil, err
	}
	out := &DisputeResolution{ApplicationID: applicationID, Resolution: models.ResolutionEmployer, ResolvedBy: adminID}
	now := s.now().UTC()

	err = s.Store.Transaction(ctx, func(tx *repository.Store) error {
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := requireOpenDispute(app); err != nil {
			return err
		}
		out.GigID = app.GigID
		escrow, err := tx.LockEscrowByGig(ctx, app.GigID)
		if err != nil {
			return err
		}
		if err := tx.UpdateApplication(ctx, app.ID, map[string]interface{}{
			"status":                   models.ApplicationStatusFunded,
			"completion_requested_at":  nil,
			"dispute_resolved_at":      now,
			"dispute_resolved_by":      adminID,
			"dispute_resolution":       models.ResolutionEmployer,
			"dispute_resolution_notes": notes,
		}); err != nil {
			return err
		}
		if err := tx.UpdateEscrow(ctx, escrow.ID, map[string]interface{}{"status": models.EscrowStatusActive}); err != nil {
			return err
		}
		return tx.UpdateGig(ctx, app.GigID, map[string]interface{}{"status": models.GigStatusInProgress})
	})
	if err != nil {
		apperrors.LogError(s.Logger, err, "resolve dispute failed",
			zap.String("application_id", applicationID), zap.String("favor", models.ResolutionEmployer))
		return nil, err
	}
	s.Logger.Info("dispute resolved in favor of employer",
		zap.String("application_id", applicationID), zap.String("admin_id", adminID))
	return out, nil
}

func (s *DisputeService) ListDisputes(ctx context.Context) ([]models.GigApplication, error) {
	return s.Store.ListApplicationsByStatus(ctx, models.ApplicationStatusCompletionDisputed)
}

func (s *DisputeService) requireEmployer(ctx context.Context, tx *repository.Store, app models.GigApplication, employerID string) error {
	owner := app.EmployerID
	if owner == "" {
		gig, err := tx.GetGig(ctx, app.GigID)
		if err != nil {
			return err
		}
		owner = gig.EmployerID
	}
	if owner != employerID {
		return apperrors.Forbidden("Only the gig owner can act on this completion")
	}
	return nil
}

func requireOpenDispute(app models.GigApplication) error {
	if app.Status == models.ApplicationStatusCompletionDisputed {
		return nil
	}
	if app.DisputeResolvedAt != nil {
		return apperrors.InvalidState("Dispute already resolved (status: %s)", app.Status)
	}
	return apperrors.InvalidState("No open dispute for this application (status: %s)", app.Status)
}

func (s *DisputeService) logRelease(msg string, res ReleaseResult) {
	s.Logger.Info(msg,
		zap.String("application_id", res.ApplicationID),
		zap.String("gig_id", res.GigID),
		zap.String("worker_id", res.WorkerID),
		zap.String("gross", res.GrossAmount.StringFixed(2)),
		zap.String("net", res.NetAmount.StringFixed(2)),
		zap.String("platform_retained", res.PlatformRetained.StringFixed(2)))
}
