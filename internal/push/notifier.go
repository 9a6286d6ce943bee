package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Result summarises one broadcast.
type Result struct {
	Delivered int
	Removed   int
	Failed    int
}

// Notifier fans a message out to every stored subscription.
type Notifier struct {
	repo        Repository
	sender      Sender
	logger      *slog.Logger
	concurrency int
}

// NewNotifier constructs a Notifier sending to at most concurrency endpoints at once.
func NewNotifier(repo Repository, sender Sender, logger *slog.Logger, concurrency int) *Notifier {
	if concurrency <= 0 {
		concurrency = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{repo: repo, sender: sender, logger: logger, concurrency: concurrency}
}

// Broadcast delivers msg to every subscriber except msg.SkipUserID. Individual
// delivery failures are counted, not returned; gone endpoints are deleted.
func (n *Notifier) Broadcast(ctx context.Context, msg Message) (Result, error) {
	subs, err := n.repo.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("push: list subscriptions: %w", err)
	}

	var delivered, removed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for _, sub := range subs {
		if msg.SkipUserID != 0 && sub.UserID == msg.SkipUserID {
			continue
		}
		sub := sub
		g.Go(func() error {
			err := n.sender.Send(gctx, sub, msg)
			switch {
			case err == nil:
				delivered.Add(1)
			case errors.Is(err, ErrGone):
				if delErr := n.repo.DeleteByID(gctx, sub.ID); delErr != nil {
					n.logger.Warn("push prune", slog.String("subscription", sub.ID.String()), slog.Any("error", delErr))
					failed.Add(1)
					return nil
				}
				removed.Add(1)
			default:
				n.logger.Warn("push send", slog.String("subscription", sub.ID.String()), slog.Any("error", err))
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Result{
		Delivered: int(delivered.Load()),
		Removed:   int(removed.Load()),
		Failed:    int(failed.Load()),
	}, nil
}
