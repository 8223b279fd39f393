package domain

import "time"

// Reactions maps an emoji to the ids of the users who reacted with it, in reaction order.
type Reactions map[string][]string

// Message a room chat message. Only Reactions changes after append.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Reactions Reactions `json:"reactions"`
}

// Clone returns a copy that shares nothing mutable with m.
func (m Message) Clone() Message {
	m.Reactions = m.Reactions.Clone()
	return m
}

// Clone deep copies the reaction sets.
func (r Reactions) Clone() Reactions {
	out := make(Reactions, len(r))
	for emoji, users := range r {
		out[emoji] = append([]string(nil), users...)
	}
	return out
}

// Has reports whether userID reacted with emoji.
func (r Reactions) Has(emoji, userID string) bool {
	for _, id := range r[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

// DirectMessage a private message between two users, never stored.
type DirectMessage struct {
	ID           string    `json:"id"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	SenderAvatar string    `json:"senderAvatar"`
	RecipientID  string    `json:"recipientId"`
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
	Private      bool      `json:"private"`
}
