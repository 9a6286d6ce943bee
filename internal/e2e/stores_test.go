package e2e

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sapients/tracker/internal/activity"
	"github.com/sapients/tracker/internal/auth"
	"github.com/sapients/tracker/internal/content"
	"github.com/sapients/tracker/internal/push"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

type userStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[string]auth.User
	sessions map[string]sessionRow
}

type sessionRow struct {
	userID    int64
	expiresAt time.Time
}

func newUserStore() *userStore {
	return &userStore{users: make(map[string]auth.User), sessions: make(map[string]sessionRow)}
}

func (s *userStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (s *userStore) CreateUser(_ context.Context, user auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return nil, auth.ErrEmailTaken
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.Email] = user
	return &user, nil
}

func (s *userStore) CreateSession(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = sessionRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *userStore) FindSession(_ context.Context, token string) (*shared.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.sessions[token]
	if !ok {
		return nil, shared.ErrNotFound
	}
	for _, u := range s.users {
		if u.ID == row.userID {
			return &shared.Session{User: u.SessionUser(), ExpiresAt: row.expiresAt}, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *userStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

type contentStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]content.Item
}

func (s *contentStore) List(_ context.Context, module rbac.Module, filter content.ListFilter) ([]content.Item, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []content.Item
	for _, it := range s.items {
		if it.Module == module {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Title, out[j].Title) < 0 })
	return out, len(out), nil
}

func (s *contentStore) Get(_ context.Context, module rbac.Module, id uuid.UUID) (content.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.Module != module {
		return content.Item{}, shared.ErrNotFound
	}
	return it, nil
}

func (s *contentStore) Create(_ context.Context, item content.Item) (content.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.Version = 1
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	s.items[item.ID] = item
	return item, nil
}

func (s *contentStore) Update(_ context.Context, module rbac.Module, id uuid.UUID, _ bool, mutate func(*content.Item)) (content.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.Module != module {
		return content.Item{}, shared.ErrNotFound
	}
	mutate(&it)
	it.Version++
	s.items[id] = it
	return it, nil
}

func (s *contentStore) Delete(_ context.Context, module rbac.Module, id uuid.UUID) (content.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.Module != module {
		return content.Item{}, shared.ErrNotFound
	}
	delete(s.items, id)
	return it, nil
}

func (s *contentStore) Versions(context.Context, uuid.UUID) ([]content.Version, error) {
	return nil, nil
}

type activityStore struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (s *activityStore) Insert(_ context.Context, entry activity.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]activity.Entry{entry}, s.entries...)
	return nil
}

func (s *activityStore) Recent(_ context.Context, limit int) ([]activity.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	return append([]activity.Entry(nil), s.entries[:limit]...), nil
}

type pushStore struct {
	mu   sync.Mutex
	subs map[uuid.UUID]push.Subscription
}

func (s *pushStore) Upsert(_ context.Context, sub push.Subscription) (push.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = sub
	return sub, nil
}

func (s *pushStore) DeleteByEndpoint(_ context.Context, userID int64, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subs {
		if sub.UserID == userID && sub.Endpoint == endpoint {
			delete(s.subs, id)
		}
	}
	return nil
}

func (s *pushStore) DeleteByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	return nil
}

func (s *pushStore) ListAll(context.Context) ([]push.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]push.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []push.Message
}

func (b *recordingBroadcaster) EnqueuePushBroadcast(_ context.Context, msg push.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
	return nil
}
