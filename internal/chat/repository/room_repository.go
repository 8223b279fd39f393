package repository

import (
	"fmt"
	"sync"
	"time"

	"group_chat_service/internal/chat/domain"

	"github.com/google/uuid"
)

// MemberCounter gives the live member count of a room.
type MemberCounter interface {
	MemberCount(roomID string) int
}

// RoomDirectory definition chat room directory
type RoomDirectory interface {
	EnsureDefaultRoom() domain.Room
	DefaultRoomID() string
	CreateRoom(name, createdBy string) (domain.Room, error)
	GetOrCreate(roomID, nameIfNew string) (domain.Room, bool)
	Get(roomID string) (domain.Room, bool)
	List() []domain.Room
	Summaries(counter MemberCounter) []domain.RoomSummary
}

type memoryRoomDirectory struct {
	mu          sync.RWMutex
	rooms       map[string]domain.Room
	order       []string
	defaultID   string
	defaultName string
	newID       func() (uuid.UUID, error)
}

// NewRoomDirectory create an in-memory room directory whose default room is defaultID
func NewRoomDirectory(defaultID, defaultName string) RoomDirectory {
	return &memoryRoomDirectory{
		rooms:       make(map[string]domain.Room),
		defaultID:   defaultID,
		defaultName: defaultName,
		newID:       uuid.NewRandom,
	}
}

// EnsureDefaultRoom creates the default room once; later calls return it unchanged.
func (d *memoryRoomDirectory) EnsureDefaultRoom() domain.Room {
	room, _ := d.GetOrCreate(d.defaultID, d.defaultName)
	return room
}

func (d *memoryRoomDirectory) DefaultRoomID() string {
	return d.defaultID
}

// CreateRoom creates a room with a fresh id.
func (d *memoryRoomDirectory) CreateRoom(name, createdBy string) (domain.Room, error) {
	id, err := d.newID()
	if err != nil {
		return domain.Room{}, fmt.Errorf("generate room id: %w", err)
	}

	room := domain.Room{
		ID:        id.String(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.insert(room)
	return room, nil
}

// GetOrCreate returns the room, creating it when unknown. The name falls back to the id.
func (d *memoryRoomDirectory) GetOrCreate(roomID, nameIfNew string) (domain.Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if room, ok := d.rooms[roomID]; ok {
		return room, false
	}
	if nameIfNew == "" {
		nameIfNew = roomID
	}
	room := domain.Room{ID: roomID, Name: nameIfNew, CreatedAt: time.Now().UTC()}
	d.insert(room)
	return room, true
}

func (d *memoryRoomDirectory) Get(roomID string) (domain.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[roomID]
	return room, ok
}

// List rooms in creation order.
func (d *memoryRoomDirectory) List() []domain.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.Room, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.rooms[id])
	}
	return out
}

// Summaries lists rooms in creation order with counts taken from counter at call time.
func (d *memoryRoomDirectory) Summaries(counter MemberCounter) []domain.RoomSummary {
	rooms := d.List()
	out := make([]domain.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, domain.RoomSummary{
			ID:          room.ID,
			Name:        room.Name,
			MemberCount: counter.MemberCount(room.ID),
		})
	}
	return out
}

// insert requires d.mu held.
func (d *memoryRoomDirectory) insert(room domain.Room) {
	d.rooms[room.ID] = room
	d.order = append(d.order, room.ID)
}
