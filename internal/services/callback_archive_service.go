package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"escrow-service/internal/repository"
)

const (
	defaultCallbackRetention = 120 * 24 * time.Hour
	archiveBatchSize         = 500
)

// CallbackArchiveService moves old callback logs out of the hot table.
type CallbackArchiveService struct {
	Store     *repository.Store
	Retention time.Duration
	Logger    *zap.Logger

	cron *cron.Cron
	now  func() time.Time
}

func NewCallbackArchiveService(store *repository.Store, retention time.Duration, logger *zap.Logger) *CallbackArchiveService {
	if retention <= 0 {
		retention = defaultCallbackRetention
	}
	return &CallbackArchiveService{Store: store, Retention: retention, Logger: logger, now: time.Now}
}

// ArchiveCallbackLogs moves logs older than the retention window in batches.
func (s *CallbackArchiveService) ArchiveCallbackLogs(ctx context.Context) (int, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.Retention)

	total := 0
	for {
		n, err := s.Store.ArchiveCallbackLogs(ctx, cutoff, archiveBatchSize, now)
		total += n
		if err != nil {
			return total, err
		}
		if n < archiveBatchSize {
			break
		}
	}

	if total == 0 {
		s.Logger.Debug("no callback logs to archive")
	} else {
		s.Logger.Info("archived callback logs", zap.Int("count", total), zap.Time("cutoff", cutoff))
	}
	return total, nil
}

// StartScheduler initializes the cron job to run daily at midnight
func (s *CallbackArchiveService) StartScheduler() error {
	c := cron.New()
	// Run daily at midnight: "0 0 * * *"
	if _, err := c.AddFunc("0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.ArchiveCallbackLogs(ctx); err != nil {
			s.Logger.Error("error archiving callback logs", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.Logger.Info("Callback archive scheduler started (Daily at 00:00)")
	return nil
}

func (s *CallbackArchiveService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
