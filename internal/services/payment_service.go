package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"escrow-service/internal/repository"
)

// PaymentService runs the periodic payment housekeeping: intent expiry and
// TradeSafe reconciliation.
type PaymentService struct {
	Store     *repository.Store
	TradeSafe *TradeSafeService
	Logger    *zap.Logger

	cron *cron.Cron
	now  func() time.Time
}

func NewPaymentService(store *repository.Store, tradeSafe *TradeSafeService, logger *zap.Logger) *PaymentService {
	return &PaymentService{Store: store, TradeSafe: tradeSafe, Logger: logger, now: time.Now}
}

// ExpireStaleIntents fails open intents whose deadline passed.
func (s *PaymentService) ExpireStaleIntents(ctx context.Context) (int64, error) {
	n, err := s.Store.ExpireIntents(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info("expired stale payment intents", zap.Int64("count", n))
	}
	return n, nil
}

// StartScheduler initializes the cron jobs for PaymentService
func (s *PaymentService) StartScheduler() error {
	c := cron.New()
	// Run every 5 minutes: "*/5 * * * *"
	if _, err := c.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.ExpireStaleIntents(ctx); err != nil {
			s.Logger.Error("error in ExpireStaleIntents", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if s.TradeSafe != nil {
		// Run every 2 minutes: "*/2 * * * *"
		if _, err := c.AddFunc("*/2 * * * *", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
			defer cancel()
			if _, err := s.TradeSafe.ReconcilePending(ctx); err != nil {
				s.Logger.Error("error in ReconcilePending", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.Start()
	s.cron = c
	s.Logger.Info("PaymentService scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (s *PaymentService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
