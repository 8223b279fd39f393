package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"group_chat_service/internal/chat/domain"
	"group_chat_service/internal/chat/repository"
	"group_chat_service/pkg/logger"
	"group_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

const (
	archiveQueueSize = 1024
	archiveTimeout   = 5 * time.Second
)

// ControllerOptions input limits enforced on client events
type ControllerOptions struct {
	MaxMessageLength int
	MaxRoomIDLength  int
}

// SessionController drives every session from admission to close.
// One mutex covers each handler's registry mutation, fanout computation and enqueue,
// so a presence snapshot is never stale relative to the change that triggered it.
type SessionController struct {
	mu sync.Mutex

	presence repository.PresenceRegistry
	rooms    repository.RoomDirectory
	messages repository.MessageLog
	typing   repository.TypingTracker
	dispatch *Dispatcher
	archive  repository.MessageArchive
	archiveQ chan domain.Message

	opts ControllerOptions
}

// NewSessionController create SessionController over explicitly constructed registries
func NewSessionController(
	presence repository.PresenceRegistry,
	rooms repository.RoomDirectory,
	messages repository.MessageLog,
	typing repository.TypingTracker,
	dispatch *Dispatcher,
	opts ControllerOptions,
) *SessionController {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 2000
	}
	if opts.MaxRoomIDLength <= 0 {
		opts.MaxRoomIDLength = 128
	}
	return &SessionController{
		presence: presence,
		rooms:    rooms,
		messages: messages,
		typing:   typing,
		dispatch: dispatch,
		opts:     opts,
	}
}

// WithArchive writes every appended message through to archive. Call RunArchive to drain the writes.
func (c *SessionController) WithArchive(archive repository.MessageArchive) *SessionController {
	c.archive = archive
	c.archiveQ = make(chan domain.Message, archiveQueueSize)
	return c
}

// RunArchive writes queued messages in order until ctx is done, then flushes what is still queued and returns.
func (c *SessionController) RunArchive(ctx context.Context) {
	if c.archive == nil {
		return
	}
	for {
		select {
		case msg := <-c.archiveQ:
			c.writeArchive(ctx, msg)
		case <-ctx.Done():
			// 關閉前把剩下的訊息寫完
			for {
				select {
				case msg := <-c.archiveQ:
					c.writeArchive(context.Background(), msg)
				default:
					return
				}
			}
		}
	}
}

// Bootstrap creates the default room and its log. Failure here is fatal to the process.
func (c *SessionController) Bootstrap() (domain.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validRoomID(c.rooms.DefaultRoomID()); err != nil {
		return domain.Room{}, fmt.Errorf("default room: %w", err)
	}
	room := c.rooms.EnsureDefaultRoom()
	c.messages.CreateRoomLog(room.ID)
	return room, nil
}

// Connect admits a gated connection and joins it to the default room.
func (c *SessionController) Connect(connectionID string, identity domain.Identity) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.presence.Admit(connectionID, identity)
	if err != nil {
		return domain.Session{}, err
	}
	metrics.ConnectionsActive.Inc()

	room, ok := c.rooms.Get(c.rooms.DefaultRoomID())
	if !ok {
		room = c.rooms.EnsureDefaultRoom()
		c.messages.CreateRoomLog(room.ID)
	}
	if _, err := c.presence.SetRoom(connectionID, room.ID); err != nil {
		return domain.Session{}, err
	}
	s.CurrentRoomID = room.ID

	logger.Log.Info("session admitted",
		zap.String("connectionID", connectionID),
		zap.String("userID", s.UserID),
		zap.String("roomID", room.ID),
	)

	c.dispatch.DirectTo(connectionID, domain.Registered, domain.RegisteredResp{User: publicUser(s)})
	c.sendHistory(connectionID, room.ID)
	c.dispatch.BroadcastToRoom(room.ID, domain.UserJoined, domain.MembershipNotice{
		User:    publicUser(s),
		Message: fmt.Sprintf("%s joined the chat", s.Username),
	})
	c.dispatch.PresenceSnapshot(room.ID)
	return s, nil
}

// Disconnect closes the session. A second call for the same connection does nothing.
func (c *SessionController) Disconnect(connectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.presence.Remove(connectionID)
	if !ok {
		return
	}
	metrics.ConnectionsActive.Dec()
	logger.Log.Info("session closed", zap.String("connectionID", connectionID), zap.String("userID", s.UserID))

	c.clearStaleTyping(s)
	if s.CurrentRoomID == "" {
		return
	}
	c.dispatch.BroadcastToRoom(s.CurrentRoomID, domain.UserLeft, domain.MembershipNotice{
		User:    publicUser(s),
		Message: fmt.Sprintf("%s left the chat", s.Username),
	})
	c.dispatch.PresenceSnapshot(s.CurrentRoomID)
}

// HandleFrame decodes one inbound text frame and handles it.
func (c *SessionController) HandleFrame(connectionID string, frame []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		metrics.EventsReceived.WithLabelValues("invalid").Inc()
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.presence.Lookup(connectionID); ok {
			c.replyError(connectionID, "", fmt.Errorf("%w: malformed frame", domain.ErrInvalidPayload))
		}
		return
	}
	c.Handle(connectionID, req)
}

// Handle runs the handler for req on behalf of connectionID.
// Events from a connection without a session are dropped.
func (c *SessionController) Handle(connectionID string, req domain.WSRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.presence.Lookup(connectionID)
	if !ok {
		logger.Log.Debug("event without session dropped",
			zap.String("connectionID", connectionID),
			zap.String("event", string(req.Event)),
		)
		return
	}

	var err error
	switch req.Event {
	case domain.SendMessage:
		err = c.sendMessage(s, req.Data)
	case domain.Typing:
		err = c.setTyping(s, req.Data, true)
	case domain.StopTyping:
		err = c.setTyping(s, req.Data, false)
	case domain.JoinRoom:
		err = c.joinRoom(s, req.Data)
	case domain.CreateRoom:
		err = c.createRoom(s, req.Data)
	case domain.GetRooms:
		err = c.getRooms(s)
	case domain.AddReaction:
		err = c.addReaction(s, req.Data)
	case domain.PrivateMessage:
		err = c.privateMessage(s, req.Data)
	default:
		metrics.EventsReceived.WithLabelValues("unknown").Inc()
		c.replyError(connectionID, req.Event, fmt.Errorf("%w: unknown event", domain.ErrInvalidPayload))
		return
	}
	metrics.EventsReceived.WithLabelValues(string(req.Event)).Inc()

	if err == nil {
		return
	}
	logger.Log.Debug("event rejected",
		zap.String("connectionID", connectionID),
		zap.String("event", string(req.Event)),
		zap.Error(err),
	)
	if !silent(err) {
		c.replyError(connectionID, req.Event, err)
	}
}

// Rooms room summaries with live member counts.
func (c *SessionController) Rooms() []domain.RoomSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms.Summaries(c.presence)
}

// OnlineCount number of live sessions.
func (c *SessionController) OnlineCount() int {
	return c.presence.Count()
}

// moveSession requires c.mu held. It returns the room the session was in before.
func (c *SessionController) moveSession(s *domain.Session, roomID string) string {
	prev, err := c.presence.SetRoom(s.ConnectionID, roomID)
	if err != nil {
		// lookup succeeded under the same lock
		logger.Log.Error("move session", zap.String("connectionID", s.ConnectionID), zap.Error(err))
	}
	s.CurrentRoomID = roomID
	return prev
}

// announceJoin requires c.mu held. It runs the fanout of a session that moved from prev to room.
func (c *SessionController) announceJoin(s domain.Session, prev string, room domain.Room) {
	if prev != "" && prev != room.ID {
		c.clearStaleTyping(s)
		c.dispatch.PresenceSnapshot(prev)
	}

	c.sendHistory(s.ConnectionID, room.ID)
	c.dispatch.BroadcastToRoom(room.ID, domain.UserJoined, domain.MembershipNotice{
		User:    publicUser(s),
		Message: fmt.Sprintf("%s joined %s", s.Username, room.Name),
	})
	c.dispatch.PresenceSnapshot(room.ID)
}

// clearStaleTyping drops the user's typing entries in every room where no session of theirs remains.
func (c *SessionController) clearStaleTyping(s domain.Session) {
	for _, roomID := range c.typing.RoomsOf(s.UserID) {
		if c.presence.IsMember(roomID, s.UserID) {
			continue
		}
		if c.typing.ClearTyping(roomID, s.UserID) {
			c.dispatch.BroadcastToRoom(roomID, domain.UserStoppedTyping, typingNotice(s, roomID))
		}
	}
}

func (c *SessionController) sendHistory(connectionID, roomID string) {
	history, err := c.messages.History(roomID)
	if err != nil {
		logger.Log.Error("load history", zap.String("roomID", roomID), zap.Error(err))
		history = []domain.Message{}
	}
	c.dispatch.DirectTo(connectionID, domain.PreviousMessages, history)
}

func (c *SessionController) replyError(connectionID string, event domain.Event, err error) {
	c.dispatch.DirectTo(connectionID, domain.Error, domain.ErrorResp{Event: event, Message: err.Error()})
}

// archiveMessage enqueues without blocking. A full queue drops the archive copy only.
func (c *SessionController) archiveMessage(msg domain.Message) {
	if c.archive == nil {
		return
	}
	select {
	case c.archiveQ <- msg:
	default:
		metrics.MirrorErrors.WithLabelValues("mongo").Inc()
		logger.Log.Warn("archive queue full, message not archived", zap.String("messageID", msg.ID))
	}
}

func (c *SessionController) writeArchive(ctx context.Context, msg domain.Message) {
	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	if err := c.archive.Archive(ctx, msg); err != nil {
		metrics.MirrorErrors.WithLabelValues("mongo").Inc()
		logger.Log.Warn("archive message", zap.String("messageID", msg.ID), zap.Error(err))
	}
}

// roomOrCurrent resolves an optional room id against the session's current room.
func (c *SessionController) roomOrCurrent(s domain.Session, roomID string) (string, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		if s.CurrentRoomID == "" {
			return "", fmt.Errorf("%w: roomId is required", domain.ErrInvalidPayload)
		}
		return s.CurrentRoomID, nil
	}
	return roomID, c.validRoomID(roomID)
}

func (c *SessionController) validRoomID(roomID string) error {
	switch {
	case strings.TrimSpace(roomID) == "":
		return fmt.Errorf("%w: roomId is required", domain.ErrInvalidPayload)
	case len(roomID) > c.opts.MaxRoomIDLength:
		return fmt.Errorf("%w: roomId longer than %d bytes", domain.ErrInvalidPayload, c.opts.MaxRoomIDLength)
	}
	return nil
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

// silent reports errors that end a handler without a reply.
func silent(err error) bool {
	return errors.Is(err, domain.ErrUnknownMessage) || errors.Is(err, domain.ErrUnknownSession)
}

func publicUser(s domain.Session) domain.PublicUser {
	return domain.PublicUser{ID: s.UserID, Username: s.Username, Avatar: s.Avatar}
}

func typingNotice(s domain.Session, roomID string) domain.TypingNotice {
	return domain.TypingNotice{UserID: s.UserID, Username: s.Username, RoomID: roomID}
}
