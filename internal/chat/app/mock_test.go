package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"group_chat_service/internal/chat/domain"
	"group_chat_service/internal/chat/repository"
	"group_chat_service/pkg/logger"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sentFrame struct {
	connectionID string
	resp         domain.WSResponse
}

// recordingTransport keeps every frame in send order
type recordingTransport struct {
	mu     sync.Mutex
	frames []sentFrame
}

func (r *recordingTransport) Send(connectionID string, resp domain.WSResponse) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, sentFrame{connectionID: connectionID, resp: resp})
	return true
}

func (r *recordingTransport) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}

// to frames received by connectionID
func (r *recordingTransport) to(connectionID string) []domain.WSResponse {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.WSResponse
	for _, f := range r.frames {
		if f.connectionID == connectionID {
			out = append(out, f.resp)
		}
	}
	return out
}

func (r *recordingTransport) events(connectionID string) []domain.Event {
	var out []domain.Event
	for _, resp := range r.to(connectionID) {
		out = append(out, resp.Event)
	}
	return out
}

// last data of event received by connectionID, nil when never received
func (r *recordingTransport) last(connectionID string, event domain.Event) interface{} {
	frames := r.to(connectionID)
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Event == event {
			return frames[i].Data
		}
	}
	return nil
}

func (r *recordingTransport) count(connectionID string, event domain.Event) int {
	n := 0
	for _, e := range r.events(connectionID) {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recordingTransport) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// MockEventMirror Mock EventMirror
type MockEventMirror struct {
	mock.Mock
}

// MirrorRoom mock mirror room event
func (m *MockEventMirror) MirrorRoom(ctx context.Context, roomID string, resp domain.WSResponse) error {
	args := m.Called(ctx, roomID, resp)
	return args.Error(0)
}

// MirrorGlobal mock mirror global event
func (m *MockEventMirror) MirrorGlobal(ctx context.Context, resp domain.WSResponse) error {
	args := m.Called(ctx, resp)
	return args.Error(0)
}

// MockMessageArchive Mock MessageArchive
type MockMessageArchive struct {
	mock.Mock
}

// Archive mock archive message
func (m *MockMessageArchive) Archive(ctx context.Context, msg domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// harness wires a controller over fresh in-memory registries
type harness struct {
	ctrl     *SessionController
	tr       *recordingTransport
	dispatch *Dispatcher
	presence repository.PresenceRegistry
	rooms    repository.RoomDirectory
	messages repository.MessageLog
	typing   repository.TypingTracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger.SetNewNop()

	h := &harness{
		tr:       &recordingTransport{},
		presence: repository.NewPresenceRegistry(),
		rooms:    repository.NewRoomDirectory("global", "Global Chat"),
		messages: repository.NewMessageLog(),
		typing:   repository.NewTypingTracker(),
	}
	h.dispatch = NewDispatcher(h.presence, h.tr)
	h.ctrl = NewSessionController(h.presence, h.rooms, h.messages, h.typing, h.dispatch, ControllerOptions{
		MaxMessageLength: 20,
		MaxRoomIDLength:  16,
	})
	_, err := h.ctrl.Bootstrap()
	require.NoError(t, err)
	return h
}

// connect admits connectionID as user u-<name>
func (h *harness) connect(t *testing.T, connectionID, name string) {
	t.Helper()
	_, err := h.ctrl.Connect(connectionID, domain.Identity{ID: "u-" + name, Username: name, Avatar: name + ".png"})
	require.NoError(t, err)
}

func (h *harness) emit(t *testing.T, connectionID string, event domain.Event, payload interface{}) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}
	h.ctrl.Handle(connectionID, domain.WSRequest{Event: event, Data: raw})
}

// roomsOf rooms in which userID is a live member
func (h *harness) roomsOf(userID string) []string {
	var out []string
	for _, r := range h.rooms.List() {
		if h.presence.IsMember(r.ID, userID) {
			out = append(out, r.ID)
		}
	}
	return out
}
