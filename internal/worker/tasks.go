package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"escrow-service/internal/services"
)

// Task Types
const (
	TypeFundingSettle = "funding:settle"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Task Creators

func NewFundingSettleTask(payload services.FundingRequest) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFundingSettle, data), nil
}

// Enqueuer is the part of *asynq.Client the dispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher queues background work. It satisfies services.FundingRetryQueue.
type Dispatcher struct {
	client Enqueuer
}

func NewDispatcher(client Enqueuer) *Dispatcher {
	return &Dispatcher{client: client}
}

// EnqueueFundingRetry schedules another funding attempt. One task per gig and
// payment: a duplicate enqueue while the first is pending is dropped by asynq.
func (d *Dispatcher) EnqueueFundingRetry(ctx context.Context, req services.FundingRequest) error {
	task, err := NewFundingSettleTask(req)
	if err != nil {
		return err
	}
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(10),
		asynq.ProcessIn(30*time.Second),
		asynq.TaskID(fundingTaskID(req)),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func fundingTaskID(req services.FundingRequest) string {
	key := req.IntentID
	if key == "" {
		key = req.TransactionID
	}
	return TypeFundingSettle + ":" + req.GigID + ":" + key
}

var _ services.FundingRetryQueue = (*Dispatcher)(nil)
