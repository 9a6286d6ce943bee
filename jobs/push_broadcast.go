package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sapients/tracker/internal/jobs"
	"github.com/sapients/tracker/internal/push"
)

// Broadcaster delivers a message to every subscriber.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg push.Message) (push.Result, error)
}

// PushBroadcastJob runs queued push broadcasts.
type PushBroadcastJob struct {
	Notifier Broadcaster
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPushBroadcastJob wires dependencies for the broadcast handler.
func NewPushBroadcastJob(notifier Broadcaster, logger *slog.Logger, metrics *jobmetrics.Metrics) *PushBroadcastJob {
	return &PushBroadcastJob{Notifier: notifier, Logger: logger, Metrics: metrics}
}

// Handle processes TaskPushBroadcast tasks. Per-endpoint failures are not retried.
func (j *PushBroadcastJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Notifier == nil {
		return errors.New("push broadcast: handler not configured")
	}
	var msg push.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil || msg.Title == "" {
		return asynq.SkipRetry
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracker := metrics.Track("push_broadcast")
	result, err := j.Notifier.Broadcast(ctx, msg)
	if err != nil {
		logger.Error("push broadcast", slog.Any("error", err))
		return tracker.End(err)
	}
	metrics.AddPushOutcomes(result.Delivered, result.Removed, result.Failed)
	logger.Info("push broadcast complete",
		slog.Int("delivered", result.Delivered),
		slog.Int("removed", result.Removed),
		slog.Int("failed", result.Failed),
	)
	return tracker.End(nil)
}
