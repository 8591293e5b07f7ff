// Package memstore is an in-process Store used for local runs and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"collabcore/internal/collab/model"
	"collabcore/internal/collab/repository"

	"github.com/google/uuid"
)

type txKey struct{}

type Store struct {
	mu sync.Mutex

	users       map[string]*model.User
	rooms       map[string]*model.Room
	memberships map[string]*model.Membership // key: room_id + "/" + user_id
	messages    map[string]*model.Message
	audit       []*model.AuditRecord

	// Now is the clock used for timestamps; overridable in tests.
	Now func() time.Time
}

var (
	_ repository.Store       = (*Store)(nil)
	_ repository.EventSource = (*Store)(nil)
	_ repository.AuditSink   = (*Store)(nil)
	_ repository.AuditReader = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:       make(map[string]*model.User),
		rooms:       make(map[string]*model.Room),
		memberships: make(map[string]*model.Membership),
		messages:    make(map[string]*model.Message),
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func membershipKey(roomID, userID string) string {
	return roomID + "/" + userID
}

// lock acquires the store mutex unless ctx already runs inside this store's transaction.
func (s *Store) lock(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	users       map[string]*model.User
	rooms       map[string]*model.Room
	memberships map[string]*model.Membership
	messages    map[string]*model.Message
	audit       []*model.AuditRecord
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		users:       make(map[string]*model.User, len(s.users)),
		rooms:       make(map[string]*model.Room, len(s.rooms)),
		memberships: make(map[string]*model.Membership, len(s.memberships)),
		messages:    make(map[string]*model.Message, len(s.messages)),
		audit:       append([]*model.AuditRecord(nil), s.audit...),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.rooms {
		cp := *v
		snap.rooms[k] = &cp
	}
	for k, v := range s.memberships {
		cp := *v
		snap.memberships[k] = &cp
	}
	for k, v := range s.messages {
		cp := *v
		snap.messages[k] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.rooms = snap.rooms
	s.memberships = snap.memberships
	s.messages = snap.messages
	s.audit = snap.audit
}

// WithTransaction serializes fn against every other store call and rolls back
// all writes when fn returns an error.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	return nil
}

// PutUser registers a user. Users are provisioned outside the service.
func (s *Store) PutUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.Now()
	}
	s.users[u.ID] = &cp
}

func (s *Store) FindUser(ctx context.Context, userID string) (*model.User, error) {
	defer s.lock(ctx)()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// ---- Rooms ----

func (s *Store) FindRoom(ctx context.Context, roomID string) (*model.Room, error) {
	defer s.lock(ctx)()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (s *Store) CreateRoom(ctx context.Context, room *model.Room) error {
	defer s.lock(ctx)()
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if _, exists := s.rooms[room.ID]; exists {
		return repository.ErrDuplicate
	}
	now := s.Now()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *Store) UpdateRoomStatus(ctx context.Context, roomID string, status model.TicketStatus) error {
	defer s.lock(ctx)()
	room, ok := s.rooms[roomID]
	if !ok {
		return model.NotFound("room", roomID)
	}
	room.Status = status
	room.UpdatedAt = s.Now()
	return nil
}

func (s *Store) RenameRoom(ctx context.Context, roomID, name string) error {
	defer s.lock(ctx)()
	room, ok := s.rooms[roomID]
	if !ok {
		return model.NotFound("room", roomID)
	}
	room.Name = name
	room.UpdatedAt = s.Now()
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	defer s.lock(ctx)()
	if _, ok := s.rooms[roomID]; !ok {
		return model.NotFound("room", roomID)
	}
	delete(s.rooms, roomID)
	return nil
}

func (s *Store) ListRoomIDs(ctx context.Context, q model.RoomQuery) ([]string, error) {
	defer s.lock(ctx)()
	var ids []string
	for id, room := range s.rooms {
		if len(q.Types) > 0 && !containsType(q.Types, room.Type) {
			continue
		}
		if q.Department != "" && room.DepartmentName() != q.Department {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) LockRoom(ctx context.Context, roomID string) error {
	defer s.lock(ctx)()
	room, ok := s.rooms[roomID]
	if !ok {
		return model.NotFound("room", roomID)
	}
	room.MembershipVersion++
	return nil
}

// ---- Memberships ----

func (s *Store) FindMembership(ctx context.Context, userID, roomID string) (*model.Membership, error) {
	defer s.lock(ctx)()
	m, ok := s.memberships[membershipKey(roomID, userID)]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListMemberships(ctx context.Context, roomID string) ([]*model.Membership, error) {
	defer s.lock(ctx)()
	return s.collectMemberships(func(m *model.Membership) bool { return m.RoomID == roomID }), nil
}

func (s *Store) ListUserMemberships(ctx context.Context, userID string) ([]*model.Membership, error) {
	defer s.lock(ctx)()
	return s.collectMemberships(func(m *model.Membership) bool { return m.UserID == userID }), nil
}

func (s *Store) collectMemberships(keep func(*model.Membership) bool) []*model.Membership {
	var out []*model.Membership
	for _, m := range s.memberships {
		if keep(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) FindOwner(ctx context.Context, roomID string) (*model.Membership, error) {
	defer s.lock(ctx)()
	for _, m := range s.memberships {
		if m.RoomID == roomID && m.Role == model.MemberRoleOwner {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CountOwners(ctx context.Context, roomID string) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for _, m := range s.memberships {
		if m.RoomID == roomID && m.Role == model.MemberRoleOwner {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountMembers(ctx context.Context, roomID string) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for _, m := range s.memberships {
		if m.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertMembership(ctx context.Context, m *model.Membership) error {
	defer s.lock(ctx)()
	now := s.Now()
	key := membershipKey(m.RoomID, m.UserID)

	if m.Role == model.MemberRoleOwner {
		for k, other := range s.memberships {
			if k != key && other.RoomID == m.RoomID && other.Role == model.MemberRoleOwner {
				return repository.ErrDuplicate
			}
		}
	}

	existing, ok := s.memberships[key]
	if ok {
		existing.Role = m.Role
		existing.RoomType = m.RoomType
		existing.UpdatedAt = now
		existing.UpdatedBy = m.UpdatedBy
		*m = *existing
		return nil
	}

	stored := *m
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.memberships[key] = &stored
	*m = stored
	return nil
}

func (s *Store) DeleteMembership(ctx context.Context, userID, roomID string) error {
	defer s.lock(ctx)()
	key := membershipKey(roomID, userID)
	if _, ok := s.memberships[key]; !ok {
		return model.NotFound("membership", userID)
	}
	delete(s.memberships, key)
	return nil
}

func (s *Store) DeleteRoomMemberships(ctx context.Context, roomID string) error {
	defer s.lock(ctx)()
	for k, m := range s.memberships {
		if m.RoomID == roomID {
			delete(s.memberships, k)
		}
	}
	return nil
}

// ---- Messages ----

func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	defer s.lock(ctx)()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, exists := s.messages[msg.ID]; exists {
		return repository.ErrDuplicate
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.Now()
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *Store) FindMessage(ctx context.Context, messageID string) (*model.Message, error) {
	defer s.lock(ctx)()
	msg, ok := s.messages[messageID]
	if !ok {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

func (s *Store) SoftDeleteMessage(ctx context.Context, messageID, deletedBy string) error {
	defer s.lock(ctx)()
	msg, ok := s.messages[messageID]
	if !ok || msg.DeletedAt != nil {
		return model.NotFound("message", messageID)
	}
	now := s.Now()
	msg.DeletedAt = &now
	msg.DeletedBy = deletedBy
	return nil
}

func (s *Store) DeleteRoomMessages(ctx context.Context, roomID string) error {
	defer s.lock(ctx)()
	for id, msg := range s.messages {
		if msg.RoomID == roomID {
			delete(s.messages, id)
		}
	}
	return nil
}

func containsType(types []model.RoomType, t model.RoomType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
