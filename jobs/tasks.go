package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/sapients/tracker/internal/push"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionSweep removes expired session rows.
	TaskSessionSweep = "sessions:sweep"
	// TaskPushBroadcast fans a push message out to every subscriber.
	TaskPushBroadcast = "push:broadcast"
)

// SessionSweepPayload configures a sweep run. Grace keeps recently expired rows.
type SessionSweepPayload struct {
	GraceSeconds int `json:"grace_seconds,omitempty"`
}

// NewSessionSweepTask constructs a sweep task.
func NewSessionSweepTask(payload SessionSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionSweep, data), nil
}

// NewPushBroadcastTask constructs a broadcast task.
func NewPushBroadcastTask(msg push.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPushBroadcast, data), nil
}
