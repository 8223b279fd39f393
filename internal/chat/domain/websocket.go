package domain

import "encoding/json"

// Event websocket event name
type Event string

// inbound events
const (
	// SendMessage websocket event send-message
	SendMessage Event = "send-message"
	// Typing websocket event typing
	Typing Event = "typing"
	// StopTyping websocket event stop-typing
	StopTyping Event = "stop-typing"
	// JoinRoom websocket event join-room
	JoinRoom Event = "join-room"
	// CreateRoom websocket event create-room
	CreateRoom Event = "create-room"
	// GetRooms websocket event get-rooms
	GetRooms Event = "get-rooms"
	// AddReaction websocket event add-reaction
	AddReaction Event = "add-reaction"
	// PrivateMessage websocket event private-message, both directions
	PrivateMessage Event = "private-message"
)

// outbound events
const (
	Registered         Event = "registered"
	PreviousMessages   Event = "previous-messages"
	NewMessage         Event = "new-message"
	MessageDelivered   Event = "message-delivered"
	UserJoined         Event = "user-joined"
	UserLeft           Event = "user-left"
	OnlineUsers        Event = "online-users"
	UserTyping         Event = "user-typing"
	UserStoppedTyping  Event = "user-stopped-typing"
	ReactionAdded      Event = "reaction-added"
	RoomCreated        Event = "room-created"
	NewRoom            Event = "new-room"
	RoomsList          Event = "rooms-list"
	PrivateMessageSent Event = "private-message-sent"
	ConnectError       Event = "connect_error"
	Error              Event = "error"
)

// WSRequest inbound websocket frame
type WSRequest struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSResponse outbound websocket frame
type WSResponse struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data"`
}

// SendMessageReq payload of send-message
type SendMessageReq struct {
	Text   string `json:"text"`
	RoomID string `json:"roomId"`
}

// TypingReq payload of typing and stop-typing
type TypingReq struct {
	RoomID string `json:"roomId"`
}

// JoinRoomReq payload of join-room
type JoinRoomReq struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

// CreateRoomReq payload of create-room
type CreateRoomReq struct {
	Name string `json:"name"`
}

// AddReactionReq payload of add-reaction
type AddReactionReq struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	RoomID    string `json:"roomId"`
}

// PrivateMessageReq payload of private-message
type PrivateMessageReq struct {
	RecipientID string `json:"recipientId"`
	Text        string `json:"text"`
}

// RegisteredResp payload of registered
type RegisteredResp struct {
	User PublicUser `json:"user"`
}

// MembershipNotice payload of user-joined and user-left
type MembershipNotice struct {
	User    PublicUser `json:"user"`
	Message string     `json:"message"`
}

// TypingNotice payload of user-typing and user-stopped-typing
type TypingNotice struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// DeliveredAck payload of message-delivered
type DeliveredAck struct {
	MessageID string `json:"messageId"`
}

// ReactionNotice payload of reaction-added
type ReactionNotice struct {
	MessageID string    `json:"messageId"`
	Emoji     string    `json:"emoji"`
	UserID    string    `json:"userId"`
	Reactions Reactions `json:"reactions"`
}

// RoomCreatedResp payload of room-created
type RoomCreatedResp struct {
	Room
	MemberCount int `json:"memberCount"`
}

// ErrorResp payload of error and connect_error
type ErrorResp struct {
	Event   Event  `json:"event,omitempty"`
	Message string `json:"message"`
}
