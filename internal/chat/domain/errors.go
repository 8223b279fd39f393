package domain

import "errors"

var (
	// ErrAuthentication no credential was presented
	ErrAuthentication = errors.New("authentication required")
	// ErrInvalidCredential the credential failed verification
	ErrInvalidCredential = errors.New("invalid token")
	// ErrDuplicateConnection a connection id was admitted twice
	ErrDuplicateConnection = errors.New("duplicate connection")
	// ErrUnknownSession event for a connection without a session
	ErrUnknownSession = errors.New("unknown session")
	// ErrUnknownRoom room was never created
	ErrUnknownRoom = errors.New("unknown room")
	// ErrUnknownMessage message not found in the room log
	ErrUnknownMessage = errors.New("unknown message")
	// ErrInvalidPayload inbound event payload failed validation
	ErrInvalidPayload = errors.New("invalid payload")
)

// Connection refusal reasons carried by connect_error.
const (
	ReasonAuthenticationRequired = "Authentication required"
	ReasonInvalidToken           = "Invalid token"
)

// ConnectErrorReason maps a gate error to the reason sent to the client.
func ConnectErrorReason(err error) string {
	if errors.Is(err, ErrAuthentication) {
		return ReasonAuthenticationRequired
	}
	return ReasonInvalidToken
}
