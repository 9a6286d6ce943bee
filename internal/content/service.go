package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sapients/tracker/internal/activity"
	"github.com/sapients/tracker/internal/push"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

// ErrNotVersioned is returned when history is requested for a module that keeps none.
var ErrNotVersioned = errors.New("content: module has no version history")

// ActivityRecorder appends to the activity feed.
type ActivityRecorder interface {
	Record(ctx context.Context, actor shared.SessionUser, action string, link activity.Link, summary string) (activity.Entry, error)
}

// Broadcaster queues a push notification.
type Broadcaster interface {
	EnqueuePushBroadcast(ctx context.Context, msg push.Message) error
}

// Page is one page of a module listing.
type Page struct {
	Items      []Item            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// Service implements content operations. Authorization happens before any call.
type Service struct {
	repo        Repository
	activity    ActivityRecorder
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewService constructs a Service. activity and broadcaster may be nil.
func NewService(repo Repository, recorder ActivityRecorder, broadcaster Broadcaster, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, activity: recorder, broadcaster: broadcaster, logger: logger}
}

// List returns one page of items in module.
func (s *Service) List(ctx context.Context, module rbac.Module, page, perPage int) (Page, error) {
	if !IsContentModule(module) {
		return Page{}, ErrUnknownModule
	}
	page, perPage = shared.ClampPage(page, perPage)
	items, total, err := s.repo.List(ctx, module, ListFilter{Page: page, PerPage: perPage})
	if err != nil {
		return Page{}, fmt.Errorf("content: list %s: %w", module, err)
	}
	if items == nil {
		items = []Item{}
	}
	return Page{Items: items, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// Get loads one item.
func (s *Service) Get(ctx context.Context, module rbac.Module, id uuid.UUID) (Item, error) {
	if !IsContentModule(module) {
		return Item{}, ErrUnknownModule
	}
	return s.repo.Get(ctx, module, id)
}

// Create stores a new item authored by actor.
func (s *Service) Create(ctx context.Context, actor shared.SessionUser, module rbac.Module, in ItemInput) (Item, error) {
	if !IsContentModule(module) {
		return Item{}, ErrUnknownModule
	}
	item, err := s.repo.Create(ctx, Item{
		ID:        uuid.New(),
		Module:    module,
		Title:     in.Title,
		Body:      in.Body,
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
	})
	if err != nil {
		return Item{}, fmt.Errorf("content: create %s: %w", module, err)
	}
	s.record(ctx, actor, activity.ActionCreated, item)
	s.broadcast(ctx, actor, item, "New "+module.String())
	return item, nil
}

// Update replaces the writable fields of an item. Versioned modules snapshot the prior state.
func (s *Service) Update(ctx context.Context, actor shared.SessionUser, module rbac.Module, id uuid.UUID, in ItemInput) (Item, error) {
	if !IsContentModule(module) {
		return Item{}, ErrUnknownModule
	}
	item, err := s.repo.Update(ctx, module, id, Versioned(module), func(it *Item) {
		it.Title = in.Title
		it.Body = in.Body
		it.UpdatedBy = actor.ID
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Item{}, err
		}
		return Item{}, fmt.Errorf("content: update %s: %w", module, err)
	}
	s.record(ctx, actor, activity.ActionUpdated, item)
	if Versioned(module) {
		s.broadcast(ctx, actor, item, module.String()+" updated")
	}
	return item, nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, actor shared.SessionUser, module rbac.Module, id uuid.UUID) error {
	if !IsContentModule(module) {
		return ErrUnknownModule
	}
	item, err := s.repo.Delete(ctx, module, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return fmt.Errorf("content: delete %s: %w", module, err)
	}
	s.record(ctx, actor, activity.ActionDeleted, item)
	return nil
}

// Versions returns the edit history of an item in a versioned module.
func (s *Service) Versions(ctx context.Context, module rbac.Module, id uuid.UUID) ([]Version, error) {
	if !Versioned(module) {
		return nil, ErrNotVersioned
	}
	if _, err := s.repo.Get(ctx, module, id); err != nil {
		return nil, err
	}
	versions, err := s.repo.Versions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("content: versions: %w", err)
	}
	if versions == nil {
		versions = []Version{}
	}
	return versions, nil
}

// Feed and push failures are logged; the write has already committed.
func (s *Service) record(ctx context.Context, actor shared.SessionUser, action string, item Item) {
	if s.activity == nil {
		return
	}
	link, ok := activity.LinkFor(item.Module, item.ID.String())
	if !ok {
		return
	}
	if _, err := s.activity.Record(ctx, actor, action, link, item.Title); err != nil {
		s.logger.Warn("record activity", slog.String("module", item.Module.String()), slog.Any("error", err))
	}
}

func (s *Service) broadcast(ctx context.Context, actor shared.SessionUser, item Item, title string) {
	if s.broadcaster == nil {
		return
	}
	msg := push.Message{
		Title:      title,
		Body:       item.Title,
		URL:        item.Module.LandingPath() + "#" + item.ID.String(),
		SkipUserID: actor.ID,
	}
	if err := s.broadcaster.EnqueuePushBroadcast(ctx, msg); err != nil {
		s.logger.Warn("enqueue push", slog.String("module", item.Module.String()), slog.Any("error", err))
	}
}
