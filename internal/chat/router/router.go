package router

import (
	"context"

	"group_chat_service/internal/chat/app"
	"group_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes 註冊 chat service 的路由
func RegisterRoutes(r *fiber.App, controller *app.SessionController, chatWebsocket *app.ChatWebsocketHandler, gate middlewares.Admitter) {
	r.Get("/", ConnectCheck)
	r.Post("/debug", DebugLogFlag)
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	r.Get("/rooms", ListRooms(controller))

	// gate 在 upgrade 之前執行, 失敗時不會建立任何 session
	r.Use("/ws", middlewares.GateMiddleware(gate), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}
