package domain

// Identity is the verified user behind a connection, immutable for the session.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// SessionStatus presence status of a session
type SessionStatus string

const (
	// SessionStatusOnline the only status a live session has
	SessionStatusOnline SessionStatus = "online"
)

// Session is one authenticated live connection.
type Session struct {
	ConnectionID  string        `json:"connectionId"`
	UserID        string        `json:"userId"`
	Username      string        `json:"username"`
	Avatar        string        `json:"avatar"`
	Status        SessionStatus `json:"status"`
	CurrentRoomID string        `json:"currentRoomId"`
}

// PublicUser user info sent in join notices and registered acks
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// OnlineUser entry of a presence snapshot
type OnlineUser struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Avatar   string        `json:"avatar"`
	Status   SessionStatus `json:"status"`
}
