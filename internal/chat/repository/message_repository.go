package repository

import (
	"fmt"
	"sync"
	"time"

	"group_chat_service/internal/chat/domain"

	"github.com/google/uuid"
)

// MessageLog append-only ordered messages per room, plus reaction state
type MessageLog interface {
	CreateRoomLog(roomID string)
	Append(roomID string, msg domain.Message) (domain.Message, error)
	History(roomID string) ([]domain.Message, error)
	AddReaction(roomID, messageID, emoji, userID string) (domain.Reactions, error)
}

type roomLog struct {
	messages []*domain.Message
	byID     map[string]*domain.Message
	last     time.Time
}

type memoryMessageLog struct {
	mu    sync.RWMutex
	rooms map[string]*roomLog
	now   func() time.Time
}

// NewMessageLog create an in-memory message log
func NewMessageLog() MessageLog {
	return &memoryMessageLog{
		rooms: make(map[string]*roomLog),
		now:   time.Now,
	}
}

// CreateRoomLog is idempotent.
func (l *memoryMessageLog) CreateRoomLog(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.rooms[roomID]; !ok {
		l.rooms[roomID] = &roomLog{byID: make(map[string]*domain.Message)}
	}
}

// Append stamps msg with a fresh id and a timestamp that never goes backwards within the room.
func (l *memoryMessageLog) Append(roomID string, msg domain.Message) (domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rl, ok := l.rooms[roomID]
	if !ok {
		return domain.Message{}, fmt.Errorf("append to %s: %w", roomID, domain.ErrUnknownRoom)
	}

	ts := l.now().UTC()
	if ts.Before(rl.last) {
		ts = rl.last
	}
	rl.last = ts

	stored := msg.Clone()
	stored.ID = uuid.New().String()
	stored.RoomID = roomID
	stored.Timestamp = ts

	rl.messages = append(rl.messages, &stored)
	rl.byID[stored.ID] = &stored
	return stored.Clone(), nil
}

// History returns a copy of the room's messages in append order.
func (l *memoryMessageLog) History(roomID string) ([]domain.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rl, ok := l.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("history of %s: %w", roomID, domain.ErrUnknownRoom)
	}
	out := make([]domain.Message, 0, len(rl.messages))
	for _, m := range rl.messages {
		out = append(out, m.Clone())
	}
	return out, nil
}

// AddReaction adds userID to the emoji's set and returns all reactions of the message.
// Adding the same triple twice changes nothing.
func (l *memoryMessageLog) AddReaction(roomID, messageID, emoji, userID string) (domain.Reactions, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rl, ok := l.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("react in %s: %w", roomID, domain.ErrUnknownRoom)
	}
	m, ok := rl.byID[messageID]
	if !ok {
		return nil, fmt.Errorf("react to %s: %w", messageID, domain.ErrUnknownMessage)
	}

	if !m.Reactions.Has(emoji, userID) {
		m.Reactions[emoji] = append(m.Reactions[emoji], userID)
	}
	return m.Reactions.Clone(), nil
}
