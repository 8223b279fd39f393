package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"group_chat_service/internal/chat/app"
	"group_chat_service/internal/chat/repository"
	"group_chat_service/internal/chat/router"
	"group_chat_service/pkg/config"
	"group_chat_service/pkg/database"
	"group_chat_service/pkg/logger"
	testtool "group_chat_service/pkg/test_tool"
	"group_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadChat()
	token.SetSecret(cfg.JWT.Secret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 初始化 in-memory registries
	presence := repository.NewPresenceRegistry()
	rooms := repository.NewRoomDirectory(cfg.Room.DefaultID, cfg.Room.DefaultName)
	messages := repository.NewMessageLog()
	typing := repository.NewTypingTracker()

	hub := app.NewConnectionHub(cfg.WS.SendBuffer)
	dispatcher := app.NewDispatcher(presence, hub)
	controller := app.NewSessionController(presence, rooms, messages, typing, dispatcher, app.ControllerOptions{
		MaxMessageLength: cfg.Room.MaxMessageLength,
		MaxRoomIDLength:  cfg.Room.MaxRoomIDLength,
	})

	room, err := controller.Bootstrap()
	if err != nil {
		logger.Log.Fatal("Unable to initialize default room", zap.Error(err))
	}
	logger.Log.Info("default room ready", zap.String("roomID", room.ID), zap.String("name", room.Name))

	// 2. 建立 Mongo 連線 (訊息封存, 選用)
	if cfg.Mongo.Enabled {
		uri := database.MongoURI(cfg.Mongo.Host, cfg.Mongo.Port, cfg.Mongo.User, cfg.Mongo.Password)
		mongo, err := database.NewMongoDB(ctx,
			database.Connection{
				ConnectStr:    uri,
				RetryCount:    cfg.Mongo.RetryCount,
				RetryInterval: time.Duration(cfg.Mongo.RetryInterval) * time.Second,
			},
			cfg.Mongo.Database)
		if err != nil {
			logger.Log.Fatal(
				"Unable to connect to mongoDB database after retries",
				zap.String("host", cfg.Mongo.Host),
				zap.Error(err),
			)
		}
		defer mongo.Close(context.Background())
		controller.WithArchive(repository.NewMongoMessageArchive(mongo.Database))
		archiveDone := make(chan struct{})
		go func() {
			defer close(archiveDone)
			controller.RunArchive(ctx)
		}()
		// 等待封存佇列寫完才關閉 mongo
		defer func() { <-archiveDone }()
		logger.Log.Info("message archive enabled", zap.String("database", cfg.Mongo.Database))
	}

	// 3. 建立 Redis 連線 (event mirror, 選用)
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisClient(ctx, database.Connection{
			ConnectStr:    cfg.Redis.Addr,
			RetryCount:    cfg.Redis.RetryCount,
			RetryInterval: time.Duration(cfg.Redis.RetryInterval) * time.Second,
		}, cfg.Redis.RedisDB)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
		}
		defer redisClient.Close()
		dispatcher.WithMirror(repository.NewRedisPubSub(redisClient, cfg.Redis.ChannelPrefix))
		mirrorDone := make(chan struct{})
		go func() {
			defer close(mirrorDone)
			dispatcher.RunMirror(ctx)
		}()
		defer func() { <-mirrorDone }()
		logger.Log.Info("event mirror enabled", zap.String("addr", cfg.Redis.Addr))
	}

	testtool.StartPprof(cfg.PprofAddr)

	// 4. 啟動 Fiber
	r := fiber.New(fiber.Config{DisableStartupMessage: config.IsProduction()})
	if err := os.MkdirAll(config.EnvConfig.ChatServiceLogPath, 0o755); err != nil {
		log.Fatalf("Failed to create log dir: %v", err)
	}
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// 注册路由
	router.RegisterRoutes(r, controller, app.NewChatWebsocketHandler(controller, hub, cfg.WS.PingInterval), app.NewGate())

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down chat service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("shutdown", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}
