package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

// ErrInvalidLink rejects entries whose link kind is unknown.
var ErrInvalidLink = errors.New("activity: invalid link")

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service records and reads the activity feed.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record appends an entry for actor.
func (s *Service) Record(ctx context.Context, actor shared.SessionUser, action string, link Link, summary string) (Entry, error) {
	if !link.Valid() {
		return Entry{}, ErrInvalidLink
	}
	entry := Entry{
		ID:        uuid.New(),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    action,
		Link:      link,
		Summary:   summary,
		At:        s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("activity: record: %w", err)
	}
	return entry, nil
}

// Recent returns up to limit entries the role is allowed to see. Entries linking
// into modules the role cannot view are dropped.
func (s *Service) Recent(ctx context.Context, role rbac.Role, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// Over-fetch so filtering still fills the page for narrow roles.
	entries, err := s.repo.Recent(ctx, limit*3)
	if err != nil {
		return nil, fmt.Errorf("activity: recent: %w", err)
	}
	visible := make([]Entry, 0, limit)
	for _, entry := range entries {
		module, ok := entry.Link.Module()
		if !ok || !rbac.CanView(role, module) {
			continue
		}
		visible = append(visible, entry)
		if len(visible) == limit {
			break
		}
	}
	return visible, nil
}
