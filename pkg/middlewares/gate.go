package middlewares

import (
	"strings"

	"group_chat_service/internal/chat/domain"
	"group_chat_service/pkg/logger"
	"group_chat_service/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	//QueryToken token in query name
	QueryToken = "token"
	//QueryAuth legacy token query name
	QueryAuth = "auth"
	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//IdentityKey verified identity, set c.locals name
	IdentityKey = "identity"
)

// Admitter verifies a presented credential.
type Admitter interface {
	Admit(token string) (domain.Identity, error)
}

// GateMiddleware runs the connection gate once before the websocket upgrade.
// A refused attempt gets 401 with a connect_error frame and creates no state.
func GateMiddleware(gate Admitter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := gate.Admit(ExtractToken(c))
		if err != nil {
			reason := domain.ConnectErrorReason(err)
			metrics.ConnectionsRejected.WithLabelValues(reason).Inc()
			logger.Log.Debug("connection refused", zap.String("ip", c.IP()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(domain.WSResponse{
				Event: domain.ConnectError,
				Data:  domain.ErrorResp{Message: reason},
			})
		}

		c.Locals(IdentityKey, identity)
		return c.Next()
	}
}

// ExtractToken looks in query token, query auth, Authorization bearer, then the auth_token cookie.
func ExtractToken(c *fiber.Ctx) string {
	if t := c.Query(QueryToken); t != "" {
		return t
	}
	if t := c.Query(QueryAuth); t != "" {
		return t
	}
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	return c.Cookies(CookieToken)
}
