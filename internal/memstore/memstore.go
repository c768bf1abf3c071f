// Package memstore is a process-local Store with the same semantics as the Postgres repository.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"uconnect/api/internal/model"
)

const defaultSubchannelName = "Geral"

type participation struct {
	userID   string
	joinedAt time.Time
}

type Store struct {
	mu sync.RWMutex

	users         map[string]model.User
	sessions      map[string]model.Session
	conversations map[string]model.Conversation
	participants  map[string][]participation
	channels      map[string]model.Channel    // by conversation id
	subchannels   map[string]model.Subchannel // by channel id
	messages      map[string][]model.Message  // by subchannel id
	groups        map[string]model.AcademicGroup
	groupMembers  map[string]map[string]struct{}
	publications  map[string]model.Publication
	events        map[string]model.Event
	grants        map[string]model.AccessGrant
}

func New() *Store {
	return &Store{
		users:         make(map[string]model.User),
		sessions:      make(map[string]model.Session),
		conversations: make(map[string]model.Conversation),
		participants:  make(map[string][]participation),
		channels:      make(map[string]model.Channel),
		subchannels:   make(map[string]model.Subchannel),
		messages:      make(map[string][]model.Message),
		groups:        make(map[string]model.AcademicGroup),
		groupMembers:  make(map[string]map[string]struct{}),
		publications:  make(map[string]model.Publication),
		events:        make(map[string]model.Event),
		grants:        make(map[string]model.AccessGrant),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func notFound(op string) error {
	return errors.Wrap(model.ErrNotFound, op)
}

func conflict(op, field string) error {
	return errors.Wrapf(model.ErrConflict, "%s: %s", op, field)
}

func paginate[T any](items []T, page model.Page) []T {
	page = page.Normalize()
	if page.Skip >= len(items) {
		return nil
	}
	end := page.Skip + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Skip:end]
}

// Users

func (s *Store) CreateUser(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Registration == user.Registration {
			return conflict("create user", "registration")
		}
		if existing.Email == user.Email {
			return conflict("create user", "email")
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return model.User{}, notFound("get user by id")
	}
	return user, nil
}

func (s *Store) findUser(match func(model.User) bool) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if match(user) {
			return user, true
		}
	}
	return model.User{}, false
}

func (s *Store) GetUserByRegistration(_ context.Context, registration string) (model.User, error) {
	user, ok := s.findUser(func(u model.User) bool { return u.Registration == registration })
	if !ok {
		return model.User{}, notFound("get user by registration")
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	user, ok := s.findUser(func(u model.User) bool { return u.Email == email })
	if !ok {
		return model.User{}, notFound("get user by email")
	}
	return user, nil
}

func (s *Store) GetUsersByIDs(_ context.Context, ids []string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var users []model.User
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *Store) ListUsers(_ context.Context, role *model.Role, page model.Page) ([]model.User, error) {
	s.mu.RLock()
	users := make([]model.User, 0, len(s.users))
	for _, user := range s.users {
		if role == nil || user.Role == *role {
			users = append(users, user)
		}
	}
	s.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return paginate(users, page), nil
}

func (s *Store) UpdateUser(_ context.Context, id string, patch model.UserPatch) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return model.User{}, notFound("update user")
	}
	for otherID, other := range s.users {
		if otherID == id {
			continue
		}
		if patch.Registration != nil && other.Registration == *patch.Registration {
			return model.User{}, conflict("update user", "registration")
		}
		if patch.Email != nil && other.Email == *patch.Email {
			return model.User{}, conflict("update user", "email")
		}
	}
	if patch.Registration != nil {
		user.Registration = *patch.Registration
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.AccessStatus != nil {
		user.AccessStatus = *patch.AccessStatus
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user
	return user, nil
}

// DeleteUser applies the same cascades as the schema.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFound("delete user")
	}
	delete(s.users, id)
	for key, session := range s.sessions {
		if session.UserID == id {
			delete(s.sessions, key)
		}
	}
	for conversationID, members := range s.participants {
		kept := members[:0]
		for _, member := range members {
			if member.userID != id {
				kept = append(kept, member)
			}
		}
		s.participants[conversationID] = kept
	}
	for subchannelID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].AuthorID != nil && *msgs[i].AuthorID == id {
				msgs[i].AuthorID = nil
			}
		}
		s.messages[subchannelID] = msgs
	}
	for _, members := range s.groupMembers {
		delete(members, id)
	}
	for pubID, pub := range s.publications {
		if pub.AuthorID == id {
			delete(s.publications, pubID)
		}
	}
	for eventID, event := range s.events {
		if event.CreatorID != nil && *event.CreatorID == id {
			event.CreatorID = nil
			s.events[eventID] = event
		}
	}
	for grantID, grant := range s.grants {
		if grant.UserID == id {
			delete(s.grants, grantID)
		}
	}
	return nil
}

// Sessions

func (s *Store) CreateSession(_ context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.TokenKey]; ok {
		return conflict("create session", "token_key")
	}
	if _, ok := s.users[session.UserID]; !ok {
		return notFound("create session")
	}
	s.sessions[session.TokenKey] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, tokenKey string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[tokenKey]
	if !ok {
		return model.Session{}, notFound("get session")
	}
	return session, nil
}

func (s *Store) DeleteSession(_ context.Context, tokenKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenKey)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed, nil
}
