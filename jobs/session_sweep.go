package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sapients/tracker/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ExpiredSessionDeleter removes session rows that expired before a cutoff.
type ExpiredSessionDeleter interface {
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// SessionSweepJob purges expired sessions. Lookups already treat them as absent,
// so the sweep only reclaims storage.
type SessionSweepJob struct {
	Sessions ExpiredSessionDeleter
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewSessionSweepJob wires dependencies for the sweep handler.
func NewSessionSweepJob(sessions ExpiredSessionDeleter, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionSweepJob {
	return &SessionSweepJob{
		Sessions: sessions,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskSessionSweep tasks.
func (j *SessionSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sessions == nil {
		return errors.New("session sweep: handler not configured")
	}
	var payload SessionSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.GraceSeconds < 0 {
		payload.GraceSeconds = 0
	}

	tracker := j.metrics().Track("sessions_sweep")
	cutoff := j.clock().Add(-time.Duration(payload.GraceSeconds) * time.Second)
	removed, err := j.Sessions.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		j.logger().Error("session sweep", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddSwept(removed)
	j.logger().Info("session sweep complete", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
	return tracker.End(nil)
}

func (j *SessionSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SessionSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
