package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"group_chat_service/internal/chat/domain"
	"group_chat_service/pkg/logger"
	"group_chat_service/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sendMessage appends to the room log and fans the message out, sender included.
func (c *SessionController) sendMessage(s domain.Session, data json.RawMessage) error {
	var req domain.SendMessageReq
	if err := decode(data, &req); err != nil {
		return err
	}
	text, err := c.validText(req.Text)
	if err != nil {
		return err
	}
	roomID, err := c.roomOrCurrent(s, req.RoomID)
	if err != nil {
		return err
	}

	// 1. 寫入訊息
	msg, err := c.messages.Append(roomID, domain.Message{
		UserID:   s.UserID,
		Username: s.Username,
		Avatar:   s.Avatar,
		Text:     text,
	})
	if errors.Is(err, domain.ErrUnknownRoom) {
		return fmt.Errorf("%w: unknown room %s", domain.ErrInvalidPayload, roomID)
	}
	if err != nil {
		return err
	}
	metrics.MessagesPosted.Inc()
	c.archiveMessage(msg)

	// 2. 送出訊息前先清除 typing
	if c.typing.ClearTyping(roomID, s.UserID) {
		c.dispatch.BroadcastToRoom(roomID, domain.UserStoppedTyping, typingNotice(s, roomID), s.ConnectionID)
	}

	// 3. 廣播給房間內所有人, 再回覆 sender 已送達
	c.dispatch.BroadcastToRoom(roomID, domain.NewMessage, msg)
	c.dispatch.DirectTo(s.ConnectionID, domain.MessageDelivered, domain.DeliveredAck{MessageID: msg.ID})
	return nil
}

// setTyping marks or clears the user's typing state and tells the rest of the room when it changed.
func (c *SessionController) setTyping(s domain.Session, data json.RawMessage, typing bool) error {
	var req domain.TypingReq
	if err := decode(data, &req); err != nil {
		return err
	}
	roomID, err := c.roomOrCurrent(s, req.RoomID)
	if err != nil {
		return err
	}

	if typing {
		if c.typing.MarkTyping(roomID, s.UserID) {
			c.dispatch.BroadcastToRoom(roomID, domain.UserTyping, typingNotice(s, roomID), s.ConnectionID)
		}
		return nil
	}
	if c.typing.ClearTyping(roomID, s.UserID) {
		c.dispatch.BroadcastToRoom(roomID, domain.UserStoppedTyping, typingNotice(s, roomID), s.ConnectionID)
	}
	return nil
}

// addReaction adds the user to the emoji's reaction set. A vanished message is a silent no-op.
func (c *SessionController) addReaction(s domain.Session, data json.RawMessage) error {
	var req domain.AddReactionReq
	if err := decode(data, &req); err != nil {
		return err
	}
	messageID := strings.TrimSpace(req.MessageID)
	emoji := strings.TrimSpace(req.Emoji)
	if messageID == "" || emoji == "" {
		return fmt.Errorf("%w: messageId and emoji are required", domain.ErrInvalidPayload)
	}
	roomID, err := c.roomOrCurrent(s, req.RoomID)
	if err != nil {
		return err
	}

	reactions, err := c.messages.AddReaction(roomID, messageID, emoji, s.UserID)
	if errors.Is(err, domain.ErrUnknownRoom) {
		return fmt.Errorf("%w: %v", domain.ErrUnknownMessage, err)
	}
	if err != nil {
		return err
	}

	c.dispatch.BroadcastToRoom(roomID, domain.ReactionAdded, domain.ReactionNotice{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    s.UserID,
		Reactions: reactions,
	})
	return nil
}

// privateMessage delivers to every live session of the recipient. Nothing is stored.
// An offline recipient gets nothing and the sender gets no private-message-sent.
func (c *SessionController) privateMessage(s domain.Session, data json.RawMessage) error {
	var req domain.PrivateMessageReq
	if err := decode(data, &req); err != nil {
		return err
	}
	recipientID := strings.TrimSpace(req.RecipientID)
	if recipientID == "" {
		return fmt.Errorf("%w: recipientId is required", domain.ErrInvalidPayload)
	}
	text, err := c.validText(req.Text)
	if err != nil {
		return err
	}

	pm := domain.DirectMessage{
		ID:           uuid.New().String(),
		SenderID:     s.UserID,
		SenderName:   s.Username,
		SenderAvatar: s.Avatar,
		RecipientID:  recipientID,
		Text:         text,
		Timestamp:    time.Now().UTC(),
		Private:      true,
	}

	if c.dispatch.DirectToUser(recipientID, domain.PrivateMessage, pm) == 0 {
		logger.Log.Debug("private message recipient offline",
			zap.String("senderID", s.UserID),
			zap.String("recipientID", recipientID),
		)
		return nil
	}
	metrics.PrivateMessagesSent.Inc()
	c.dispatch.DirectTo(s.ConnectionID, domain.PrivateMessageSent, pm)
	return nil
}

// validText rejects blank or oversized text. Accepted text is kept exactly as sent.
func (c *SessionController) validText(text string) (string, error) {
	switch {
	case strings.TrimSpace(text) == "":
		return "", fmt.Errorf("%w: text is required", domain.ErrInvalidPayload)
	case utf8.RuneCountInString(text) > c.opts.MaxMessageLength:
		return "", fmt.Errorf("%w: text longer than %d characters", domain.ErrInvalidPayload, c.opts.MaxMessageLength)
	}
	return text, nil
}
