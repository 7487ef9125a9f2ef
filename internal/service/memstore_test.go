package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"socialmaps/internal/model"
	"socialmaps/internal/queue"
)

// memStore is an in-memory stand-in for the three postgres repositories. WithinTx
// snapshots the state and restores it when fn fails, like a rolled back transaction.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*model.User
	follows       map[[2]string]time.Time
	notifications []model.Notification
	clock         time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*model.User{},
		follows: map[[2]string]time.Time{},
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) addUser(id, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := username
	m.users[id] = &model.User{ID: id, Username: &u}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type memSnapshot struct {
	users         map[string]model.User
	follows       map[[2]string]time.Time
	notifications []model.Notification
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		users:         make(map[string]model.User, len(m.users)),
		follows:       make(map[[2]string]time.Time, len(m.follows)),
		notifications: append([]model.Notification(nil), m.notifications...),
	}
	for k, v := range m.users {
		s.users[k] = *v
	}
	for k, v := range m.follows {
		s.follows[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.users = make(map[string]*model.User, len(s.users))
	for k, v := range s.users {
		u := v
		m.users[k] = &u
	}
	m.follows = s.follows
	m.notifications = s.notifications
}

// TxManager

func (m *memStore) WithinTx(_ context.Context, fn func(q sqlx.ExtContext) error) error {
	m.mu.Lock()
	snap := m.snapshot()
	m.mu.Unlock()

	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

// memUsers adapts memStore to repository.UserRepository.
type memUsers struct{ *memStore }

func (r memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

func (r memUsers) Search(_ context.Context, term string, limit int) ([]model.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.UserSummary
	for _, u := range r.users {
		if u.Username != nil && strings.Contains(strings.ToLower(*u.Username), strings.ToLower(term)) {
			out = append(out, model.UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL})
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Username < *out[j].Username })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memUsers) Upsert(_ context.Context, identity model.Identity) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if identity.Username != nil {
		for id, u := range r.users {
			if id != identity.ID && u.Username != nil && strings.EqualFold(*u.Username, *identity.Username) {
				return nil, model.ErrUsernameExists
			}
		}
	}

	u, ok := r.users[identity.ID]
	if !ok {
		u = &model.User{ID: identity.ID, AvatarURL: identity.ImageURL}
		r.users[identity.ID] = u
	}
	u.Email = identity.Email
	u.Username = identity.Username
	u.FirstName = identity.FirstName
	u.LastName = identity.LastName
	cp := *u
	return &cp, nil
}

func (r memUsers) UpdateProfile(_ context.Context, id string, req model.UpdateProfileRequest) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if req.Username != nil {
		u.Username = req.Username
	}
	if req.FirstName != nil {
		u.FirstName = req.FirstName
	}
	if req.LastName != nil {
		u.LastName = req.LastName
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) SetAvatarURL(_ context.Context, id, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.AvatarURL = &avatarURL
	return nil
}

func (r memUsers) SetPushToken(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PushToken = &token
	return nil
}

// memFollows adapts memStore to repository.FollowRepository.
type memFollows struct{ *memStore }

func (r memFollows) Create(_ context.Context, _ sqlx.ExtContext, followerID, followingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{followerID, followingID}
	if _, ok := r.follows[key]; ok {
		return false, nil
	}
	r.follows[key] = r.tick()
	return true, nil
}

func (r memFollows) Delete(_ context.Context, _ sqlx.ExtContext, followerID, followingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{followerID, followingID}
	if _, ok := r.follows[key]; !ok {
		return model.ErrNotFollowing
	}
	delete(r.follows, key)
	return nil
}

func (r memFollows) Exists(_ context.Context, followerID, followingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.follows[[2]string{followerID, followingID}]
	return ok, nil
}

func (r memFollows) CountFollowers(ctx context.Context, userID string) (int, error) {
	ids, err := r.GetFollowerIDs(ctx, userID)
	return len(ids), err
}

func (r memFollows) CountFollowing(ctx context.Context, userID string) (int, error) {
	ids, err := r.GetFollowingIDs(ctx, userID)
	return len(ids), err
}

// edges returns the other side of userID's edges, newest first. side 1 selects followers.
type memEdge struct {
	id string
	at time.Time
}

// sortedEdges orders newest first, ties broken by descending user id like the SQL keyset.
func (r memFollows) sortedEdges(userID string, side int) []memEdge {
	var out []memEdge
	for k, at := range r.follows {
		if side == 1 && k[1] == userID {
			out = append(out, memEdge{k[0], at})
		}
		if side == 0 && k[0] == userID {
			out = append(out, memEdge{k[1], at})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].at.Equal(out[j].at) {
			return out[i].at.After(out[j].at)
		}
		return out[i].id > out[j].id
	})
	return out
}

func (r memFollows) edges(userID string, side int) []string {
	out := r.sortedEdges(userID, side)
	ids := make([]string, len(out))
	for i, e := range out {
		ids[i] = e.id
	}
	return ids
}

func (r memFollows) GetFollowerIDs(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edges(userID, 1), nil
}

func (r memFollows) GetFollowingIDs(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edges(userID, 0), nil
}

func (r memFollows) page(userID string, side int, cursor *model.FollowCursor, limit int) ([]model.UserSummary, *model.FollowCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []model.UserSummary
	var next *model.FollowCursor
	var last memEdge
	for _, e := range r.sortedEdges(userID, side) {
		if cursor != nil && !e.at.Before(cursor.CreatedAt) && !(e.at.Equal(cursor.CreatedAt) && e.id < cursor.UserID) {
			continue
		}
		if len(users) == limit {
			next = &model.FollowCursor{CreatedAt: last.at, UserID: last.id}
			break
		}
		summary := model.UserSummary{ID: e.id}
		if u, ok := r.users[e.id]; ok {
			summary.Username = u.Username
		}
		users = append(users, summary)
		last = e
	}
	return users, next, nil
}

func (r memFollows) GetFollowers(_ context.Context, userID string, cursor *model.FollowCursor, limit int) ([]model.UserSummary, *model.FollowCursor, error) {
	return r.page(userID, 1, cursor, limit)
}

func (r memFollows) GetFollowing(_ context.Context, userID string, cursor *model.FollowCursor, limit int) ([]model.UserSummary, *model.FollowCursor, error) {
	return r.page(userID, 0, cursor, limit)
}

func (r memFollows) CheckFollows(_ context.Context, followerID string, followingIDs []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(followingIDs))
	for _, id := range followingIDs {
		if _, ok := r.follows[[2]string{followerID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// memNotifications adapts memStore to repository.NotificationRepository.
type memNotifications struct{ *memStore }

func (r memNotifications) CreateRequest(_ context.Context, _ sqlx.ExtContext, n *model.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.notifications {
		if existing.Kind == model.NotificationKindFollowRequest && existing.UserID == n.UserID && existing.ActorID == n.ActorID {
			return false, nil
		}
	}
	r.notifications = append(r.notifications, *n)
	return true, nil
}

func (r memNotifications) Create(_ context.Context, _ sqlx.ExtContext, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r memNotifications) DeleteRequests(_ context.Context, _ sqlx.ExtContext, userID, actorID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.notifications[:0:0]
	var removed int64
	for _, n := range r.notifications {
		if n.Kind == model.NotificationKindFollowRequest && n.UserID == userID && n.ActorID == actorID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.notifications = kept
	return removed, nil
}

func (r memNotifications) HasPendingRequest(_ context.Context, userID, actorID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.Kind == model.NotificationKindFollowRequest && n.UserID == userID && n.ActorID == actorID {
			return true, nil
		}
	}
	return false, nil
}

func (r memNotifications) ListForUser(_ context.Context, userID string) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event queue.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("%d-0", len(p.events)), nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// fixture wires the real services over one memStore.
type fixture struct {
	store         *memStore
	publisher     *recordingPublisher
	follows       *FollowService
	notifications *NotificationService
	users         *UserService
}

func newFixture(userIDs ...string) *fixture {
	store := newMemStore()
	for _, id := range userIDs {
		store.addUser(id, id)
	}

	pub := &recordingPublisher{}
	follows := NewFollowService(memFollows{store}, memUsers{store}, store, pub, nil)
	notifications := NewNotificationService(memNotifications{store}, memUsers{store}, follows, store, pub, nil)
	notifications.now = func() time.Time {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.tick()
	}

	return &fixture{
		store:         store,
		publisher:     pub,
		follows:       follows,
		notifications: notifications,
		users:         NewUserService(memUsers{store}, memFollows{store}, memNotifications{store}, NewMediaService(nil)),
	}
}
