package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/sapients/tracker/internal/jobs"
	"github.com/sapients/tracker/internal/push"
)

type fakeSessions struct {
	cutoff  time.Time
	removed int64
	err     error
}

func (f *fakeSessions) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	f.cutoff = before
	return f.removed, f.err
}

func TestSessionSweepUsesGrace(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := &fakeSessions{removed: 4}
	job := NewSessionSweepJob(sessions, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return now }

	task, err := NewSessionSweepTask(SessionSweepPayload{GraceSeconds: 3600})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, now.Add(-time.Hour), sessions.cutoff)
}

func TestSessionSweepEmptyPayload(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := &fakeSessions{}
	job := NewSessionSweepJob(sessions, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return now }

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskSessionSweep, nil)))
	assert.Equal(t, now, sessions.cutoff)
}

func TestSessionSweepPropagatesStorageError(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("pg down")}
	job := NewSessionSweepJob(sessions, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	err := job.Handle(context.Background(), asynq.NewTask(TaskSessionSweep, nil))
	assert.ErrorIs(t, err, sessions.err)
}

func TestSessionSweepRejectsBadPayload(t *testing.T) {
	job := NewSessionSweepJob(&fakeSessions{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskSessionSweep, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeNotifier struct {
	got    push.Message
	result push.Result
	err    error
}

func (f *fakeNotifier) Broadcast(_ context.Context, msg push.Message) (push.Result, error) {
	f.got = msg
	return f.result, f.err
}

func TestPushBroadcastDecodesMessage(t *testing.T) {
	notifier := &fakeNotifier{result: push.Result{Delivered: 2}}
	job := NewPushBroadcastJob(notifier, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewPushBroadcastTask(push.Message{Title: "Lore updated", URL: "/m/lore", SkipUserID: 3})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, "Lore updated", notifier.got.Title)
	assert.Equal(t, int64(3), notifier.got.SkipUserID)
}

func TestPushBroadcastSkipsEmptyMessage(t *testing.T) {
	job := NewPushBroadcastJob(&fakeNotifier{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskPushBroadcast, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{"no inspector", nil, http.StatusOK, 0},
		{"queue info", fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 7}}, http.StatusOK, 7},
		{"redis down", fakeInspector{err: errors.New("dial")}, http.StatusServiceUnavailable, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body queueHealth
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, QueueDefault, body.Queue)
			assert.Equal(t, tc.pending, body.Pending)
		})
	}
}

func TestNewWorkerValidatesTables(t *testing.T) {
	noop := func(context.Context, *asynq.Task) error { return nil }
	sweep, err := NewSessionSweepTask(SessionSweepPayload{})
	require.NoError(t, err)
	opts := asynq.RedisClientOpt{Addr: "127.0.0.1:0"}

	_, err = NewWorker(WorkerConfig{RedisOpts: opts, Handlers: []TaskHandler{{Type: TaskSessionSweep}}})
	assert.ErrorContains(t, err, "incomplete handler")

	_, err = NewWorker(WorkerConfig{RedisOpts: opts, Handlers: []TaskHandler{
		{Type: TaskSessionSweep, Handler: noop},
		{Type: TaskSessionSweep, Handler: noop},
	}})
	assert.ErrorContains(t, err, "duplicate handler")

	_, err = NewWorker(WorkerConfig{
		RedisOpts: opts,
		Handlers:  []TaskHandler{{Type: TaskPushBroadcast, Handler: noop}},
		Cron:      []CronRegistration{{Spec: "@every 1h", Task: sweep}},
	})
	assert.ErrorContains(t, err, "has no handler")

	worker, err := NewWorker(WorkerConfig{
		RedisOpts: opts,
		Handlers:  []TaskHandler{{Type: TaskSessionSweep, Handler: noop}},
		Cron:      []CronRegistration{{Spec: "@every 1h", Task: sweep}},
	})
	require.NoError(t, err)
	assert.NotNil(t, worker)
}
