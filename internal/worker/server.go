package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"escrow-service/internal/consumers"
	"escrow-service/internal/services"
)

type Worker struct {
	Processor *consumers.PaymentProcessor
}

func NewWorker(processor *consumers.PaymentProcessor) *Worker {
	return &Worker{
		Processor: processor,
	}
}

func (w *Worker) HandleFundingSettle(ctx context.Context, t *asynq.Task) error {
	var p services.FundingRequest
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	permanent, err := w.Processor.ProcessFundingSettle(ctx, p)
	if err != nil && permanent {
		return fmt.Errorf("funding settle for gig %s: %v: %w", p.GigID, err, asynq.SkipRetry)
	}
	return err
}

// NewMux registers every task handler.
func NewMux(processor *consumers.PaymentProcessor) *asynq.ServeMux {
	worker := NewWorker(processor)
	mux := asynq.NewServeMux()

	mux.HandleFunc(TypeFundingSettle, worker.HandleFundingSettle)

	return mux
}

func StartWorker(redisOpt asynq.RedisClientOpt, processor *consumers.PaymentProcessor, logger *zap.Logger) error {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// Specify how many concurrent workers to use
			Concurrency: 10,
			// Optionally specify multiple queues with different priority.
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			Logger: logger.Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Error("task failed",
					zap.String("type", task.Type()),
					zap.Int("retry", retried),
					zap.Int("max_retry", maxRetry),
					zap.Error(err))
			}),
		},
	)

	if err := srv.Run(NewMux(processor)); err != nil {
		return fmt.Errorf("could not run server: %w", err)
	}
	return nil
}
