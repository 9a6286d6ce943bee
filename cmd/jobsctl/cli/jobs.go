package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sapients/tracker/internal/push"
	"github.com/sapients/tracker/jobs"
)

// Enqueuer submits maintenance tasks.
type Enqueuer interface {
	EnqueueSessionSweep(ctx context.Context, payload jobs.SessionSweepPayload) (*asynq.TaskInfo, error)
	EnqueuePushBroadcast(ctx context.Context, msg push.Message) error
}

// Inspector reads queue state.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for background jobs.
type JobsCLI struct {
	enqueuer  Enqueuer
	inspector Inspector
	closers   []io.Closer
}

// NewJobsCLI connects the helpers to Redis.
func NewJobsCLI(opts asynq.RedisClientOpt) *JobsCLI {
	client := jobs.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{enqueuer: client, inspector: inspector, closers: []io.Closer{client, inspector}}
}

// New builds a JobsCLI over existing collaborators.
func New(enqueuer Enqueuer, inspector Inspector) *JobsCLI {
	return &JobsCLI{enqueuer: enqueuer, inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TriggerOptions carries the payload for a manual trigger.
type TriggerOptions struct {
	Grace time.Duration
	Title string
	Body  string
	URL   string
}

// Trigger enqueues a supported job by task name.
func (c *JobsCLI) Trigger(ctx context.Context, name string, opts TriggerOptions) (string, error) {
	if c == nil || c.enqueuer == nil {
		return "", errors.New("jobs cli: client not configured")
	}
	switch name {
	case jobs.TaskSessionSweep:
		info, err := c.enqueuer.EnqueueSessionSweep(ctx, jobs.SessionSweepPayload{GraceSeconds: int(opts.Grace.Seconds())})
		if err != nil {
			return "", err
		}
		if info == nil {
			return "", nil
		}
		return info.ID, nil
	case jobs.TaskPushBroadcast:
		title := strings.TrimSpace(opts.Title)
		if title == "" {
			return "", errors.New("jobs cli: broadcast title is required")
		}
		return "", c.enqueuer.EnqueuePushBroadcast(ctx, push.Message{Title: title, Body: opts.Body, URL: opts.URL})
	default:
		return "", fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the default queue's counters.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// ListScheduled returns scheduled tasks on the default queue.
func (c *JobsCLI) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// Output selects where command results go.
type Output struct {
	JSON   bool
	Stdout io.Writer
	Stderr io.Writer
}

func (o Output) normalize() Output {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// TriggerCommand runs Trigger and prints the task id.
func (c *JobsCLI) TriggerCommand(ctx context.Context, name string, opts TriggerOptions, out Output) int {
	out = out.normalize()
	id, err := c.Trigger(ctx, name, opts)
	if err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "trigger %s: %v\n", name, err)
		return 1
	}
	if id == "" {
		_, _ = fmt.Fprintf(out.Stdout, "enqueued %s\n", name)
		return 0
	}
	_, _ = fmt.Fprintf(out.Stdout, "enqueued %s id=%s\n", name, id)
	return 0
}

// StatsCommand prints queue counters.
func (c *JobsCLI) StatsCommand(out Output) int {
	out = out.normalize()
	stats, err := c.InspectQueue()
	if err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "stats: %v\n", err)
		return 1
	}
	if out.JSON {
		if err := json.NewEncoder(out.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(out.Stderr, "stats: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	tw := tabwriter.NewWriter(out.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
	_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	_ = tw.Flush()
	return 0
}

type scheduledTask struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	NextRunAt time.Time `json:"next_run_at"`
}

// ScheduledCommand prints upcoming scheduled tasks.
func (c *JobsCLI) ScheduledCommand(size int, out Output) int {
	out = out.normalize()
	infos, err := c.ListScheduled(size)
	if err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "scheduled: %v\n", err)
		return 1
	}
	tasks := make([]scheduledTask, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		tasks = append(tasks, scheduledTask{ID: info.ID, Type: info.Type, NextRunAt: info.NextProcessAt})
	}
	if out.JSON {
		if err := json.NewEncoder(out.Stdout).Encode(tasks); err != nil {
			_, _ = fmt.Fprintf(out.Stderr, "scheduled: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(out.Stdout, "no scheduled tasks")
		return 0
	}
	tw := tabwriter.NewWriter(out.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTYPE\tNEXT RUN")
	for _, task := range tasks {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", task.ID, task.Type, task.NextRunAt.UTC().Format(time.RFC3339))
	}
	_ = tw.Flush()
	return 0
}
