package app

import (
	"fmt"
	"strings"

	"group_chat_service/internal/chat/domain"
	"group_chat_service/pkg/token"
)

// Gate verifies the credential presented on a connection attempt.
type Gate struct {
	parse func(string) (*token.Claims, error)
}

// NewGate create a gate verifying HS256 tokens signed with token.JWTSecret
func NewGate() *Gate {
	return &Gate{parse: token.ParseJWTWrapper}
}

// Admit returns the verified identity behind raw. It mutates nothing.
func (g *Gate) Admit(raw string) (domain.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Identity{}, domain.ErrAuthentication
	}

	claims, err := g.parse(raw)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrInvalidCredential, err)
	}

	return domain.Identity{
		ID:       claims.UserID,
		Username: claims.Username,
		Avatar:   claims.Avatar,
	}, nil
}
