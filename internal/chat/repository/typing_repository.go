package repository

import (
	"sort"
	"sync"
)

// TypingTracker per-room set of users currently composing
type TypingTracker interface {
	MarkTyping(roomID, userID string) bool
	ClearTyping(roomID, userID string) bool
	IsTyping(roomID, userID string) bool
	Typing(roomID string) []string
	RoomsOf(userID string) []string
}

type memoryTypingTracker struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

// NewTypingTracker create an in-memory typing tracker
func NewTypingTracker() TypingTracker {
	return &memoryTypingTracker{rooms: make(map[string]map[string]struct{})}
}

// MarkTyping reports whether userID was newly added.
func (t *memoryTypingTracker) MarkTyping(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[roomID]
	if !ok {
		set = make(map[string]struct{})
		t.rooms[roomID] = set
	}
	if _, ok := set[userID]; ok {
		return false
	}
	set[userID] = struct{}{}
	return true
}

// ClearTyping reports whether userID was present.
func (t *memoryTypingTracker) ClearTyping(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := set[userID]; !ok {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(t.rooms, roomID)
	}
	return true
}

func (t *memoryTypingTracker) IsTyping(roomID, userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.rooms[roomID][userID]
	return ok
}

// Typing returns the sorted user ids composing in roomID.
func (t *memoryTypingTracker) Typing(roomID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.rooms[roomID]))
	for id := range t.rooms[roomID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RoomsOf returns the sorted ids of rooms where userID is typing.
func (t *memoryTypingTracker) RoomsOf(userID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for roomID, set := range t.rooms {
		if _, ok := set[userID]; ok {
			out = append(out, roomID)
		}
	}
	sort.Strings(out)
	return out
}
