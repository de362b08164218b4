package consumers

import (
	"context"

	"go.uber.org/zap"

	"escrow-service/internal/services"
	"escrow-service/pkg/apperrors"
)

// PaymentProcessor runs queued payment work outside the request path.
type PaymentProcessor struct {
	Funding *services.FundingService
	Logger  *zap.Logger
}

func NewPaymentProcessor(funding *services.FundingService, logger *zap.Logger) *PaymentProcessor {
	return &PaymentProcessor{
		Funding: funding,
		Logger:  logger,
	}
}

// ProcessFundingSettle re-applies a confirmed payment. Funding is idempotent,
// so a retry after a partial failure only completes what is missing.
// Errors that a retry cannot fix are reported as permanent.
func (p *PaymentProcessor) ProcessFundingSettle(ctx context.Context, req services.FundingRequest) (permanent bool, err error) {
	log := p.Logger.With(
		zap.String("gig_id", req.GigID),
		zap.String("provider", req.Provider),
		zap.String("intent_id", req.IntentID))

	res, err := p.Funding.ApplyFunding(ctx, req)
	if err != nil {
		apperrors.LogError(log, err, "funding retry failed")
		switch apperrors.CodeOf(err) {
		case apperrors.CodeValidation, apperrors.CodeNotFound, apperrors.CodeInvalidState:
			return true, err
		}
		return false, err
	}

	if res.AlreadyFunded {
		log.Info("funding retry found gig already funded")
	} else {
		log.Info("funding retry applied", zap.String("worker_id", res.WorkerID))
	}
	return false, nil
}
