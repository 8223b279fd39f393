package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"group_chat_service/internal/chat/domain"
	"group_chat_service/pkg/logger"
	"group_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

// joinRoom switches the session into roomId, creating the room when the id is unknown.
func (c *SessionController) joinRoom(s domain.Session, data json.RawMessage) error {
	var req domain.JoinRoomReq
	if err := decode(data, &req); err != nil {
		return err
	}
	roomID := strings.TrimSpace(req.RoomID)
	if err := c.validRoomID(roomID); err != nil {
		return err
	}

	room, created := c.rooms.GetOrCreate(roomID, strings.TrimSpace(req.RoomName))
	if created {
		c.messages.CreateRoomLog(room.ID)
		metrics.RoomsCreated.Inc()
		logger.Log.Info("room created on join", zap.String("roomID", room.ID), zap.String("userID", s.UserID))
	}

	prev := c.moveSession(&s, room.ID)
	if created {
		c.dispatch.BroadcastAll(domain.NewRoom, c.summary(room))
	}
	c.announceJoin(s, prev, room)
	return nil
}

// createRoom creates a room with a fresh id and moves its creator into it.
func (c *SessionController) createRoom(s domain.Session, data json.RawMessage) error {
	var req domain.CreateRoomReq
	if err := decode(data, &req); err != nil {
		return err
	}
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidPayload)
	case utf8.RuneCountInString(name) > c.opts.MaxRoomIDLength:
		return fmt.Errorf("%w: name longer than %d characters", domain.ErrInvalidPayload, c.opts.MaxRoomIDLength)
	}

	room, err := c.rooms.CreateRoom(name, s.UserID)
	if err != nil {
		logger.Log.Error("create room", zap.String("userID", s.UserID), zap.Error(err))
		return fmt.Errorf("create room: %w", err)
	}
	c.messages.CreateRoomLog(room.ID)
	metrics.RoomsCreated.Inc()
	logger.Log.Info("room created", zap.String("roomID", room.ID), zap.String("name", room.Name), zap.String("userID", s.UserID))

	prev := c.moveSession(&s, room.ID)

	summary := c.summary(room)
	c.dispatch.DirectTo(s.ConnectionID, domain.RoomCreated, domain.RoomCreatedResp{Room: room, MemberCount: summary.MemberCount})
	c.dispatch.BroadcastAll(domain.NewRoom, summary)
	c.announceJoin(s, prev, room)
	return nil
}

// getRooms replies with every room in creation order.
func (c *SessionController) getRooms(s domain.Session) error {
	c.dispatch.DirectTo(s.ConnectionID, domain.RoomsList, c.rooms.Summaries(c.presence))
	return nil
}

func (c *SessionController) summary(room domain.Room) domain.RoomSummary {
	return domain.RoomSummary{
		ID:          room.ID,
		Name:        room.Name,
		MemberCount: c.presence.MemberCount(room.ID),
	}
}
