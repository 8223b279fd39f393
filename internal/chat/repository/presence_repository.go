package repository

import (
	"fmt"
	"sync"

	"group_chat_service/internal/chat/domain"
)

// PresenceRegistry the set of live sessions, one per connection
type PresenceRegistry interface {
	Admit(connectionID string, identity domain.Identity) (domain.Session, error)
	Lookup(connectionID string) (domain.Session, bool)
	Remove(connectionID string) (domain.Session, bool)
	SetRoom(connectionID, roomID string) (string, error)
	List() []domain.Session
	ListByRoom(roomID string) []domain.Session
	ListByUser(userID string) []domain.Session
	MemberIDs(roomID string) []string
	MemberCount(roomID string) int
	IsMember(roomID, userID string) bool
	Count() int
}

type memoryPresenceRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	// admission order, used for deterministic listing
	order []string
}

// NewPresenceRegistry create an empty in-memory presence registry
func NewPresenceRegistry() PresenceRegistry {
	return &memoryPresenceRegistry{
		sessions: make(map[string]*domain.Session),
	}
}

// Admit creates the session for a newly accepted connection. It has no room yet.
func (r *memoryPresenceRegistry) Admit(connectionID string, identity domain.Identity) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connectionID]; ok {
		return domain.Session{}, fmt.Errorf("admit %s: %w", connectionID, domain.ErrDuplicateConnection)
	}

	s := &domain.Session{
		ConnectionID: connectionID,
		UserID:       identity.ID,
		Username:     identity.Username,
		Avatar:       identity.Avatar,
		Status:       domain.SessionStatusOnline,
	}
	r.sessions[connectionID] = s
	r.order = append(r.order, connectionID)
	return *s, nil
}

func (r *memoryPresenceRegistry) Lookup(connectionID string) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return domain.Session{}, false
	}
	return *s, true
}

// Remove is idempotent; the second return is false when nothing was removed.
func (r *memoryPresenceRegistry) Remove(connectionID string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return domain.Session{}, false
	}
	delete(r.sessions, connectionID)
	for i, id := range r.order {
		if id == connectionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *s, true
}

// SetRoom points the session at roomID and returns the room it was in before.
func (r *memoryPresenceRegistry) SetRoom(connectionID, roomID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return "", fmt.Errorf("set room %s: %w", connectionID, domain.ErrUnknownSession)
	}
	prev := s.CurrentRoomID
	s.CurrentRoomID = roomID
	return prev, nil
}

// List every live session in admission order.
func (r *memoryPresenceRegistry) List() []domain.Session {
	return r.filter(func(*domain.Session) bool { return true })
}

func (r *memoryPresenceRegistry) ListByRoom(roomID string) []domain.Session {
	return r.filter(func(s *domain.Session) bool { return s.CurrentRoomID == roomID })
}

func (r *memoryPresenceRegistry) ListByUser(userID string) []domain.Session {
	return r.filter(func(s *domain.Session) bool { return s.UserID == userID })
}

// MemberIDs distinct user ids in roomID, first admitted first.
func (r *memoryPresenceRegistry) MemberIDs(roomID string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, s := range r.ListByRoom(roomID) {
		if _, ok := seen[s.UserID]; ok {
			continue
		}
		seen[s.UserID] = struct{}{}
		ids = append(ids, s.UserID)
	}
	return ids
}

func (r *memoryPresenceRegistry) MemberCount(roomID string) int {
	return len(r.MemberIDs(roomID))
}

func (r *memoryPresenceRegistry) IsMember(roomID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.UserID == userID && s.CurrentRoomID == roomID {
			return true
		}
	}
	return false
}

func (r *memoryPresenceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *memoryPresenceRegistry) filter(keep func(*domain.Session) bool) []domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Session
	for _, id := range r.order {
		if s := r.sessions[id]; keep(s) {
			out = append(out, *s)
		}
	}
	return out
}
