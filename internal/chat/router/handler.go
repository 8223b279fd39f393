package router

import (
	"fmt"
	"strconv"

	"group_chat_service/internal/chat/app"
	"group_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ConnectCheck liveness
func ConnectCheck(c *fiber.Ctx) error {
	return c.SendString("chat service start!")
}

// DebugLogFlag toggle debug log flag, POST /debug?status=true
func DebugLogFlag(c *fiber.Ctx) error {
	statusStr := c.Query("status")
	logger.Log.Info("debug", zap.String("status", statusStr))
	status, err := strconv.ParseBool(statusStr)
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	logger.Log.SetDebugMode(status)
	return c.SendString(fmt.Sprintf("debug mode is : %t", status))
}

// ListRooms room summaries with live member counts
func ListRooms(controller *app.SessionController) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(controller.Rooms())
	}
}
