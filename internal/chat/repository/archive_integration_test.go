//go:build integration

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"testing"
	"time"

	"group_chat_service/internal/chat/domain"
	"group_chat_service/pkg/database"
	"group_chat_service/pkg/logger"
	testtool "group_chat_service/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// **測試用的連線**
var (
	mongoDB     *database.MongoDB
	redisClient *redis.Client
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	ctx := context.Background()

	// **啟動 MongoDB**
	mongoContainer, mongoHost, mongoPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	if err != nil {
		log.Fatalf("❌ Failed to start MongoDB container: %v", err)
	}
	fmt.Printf("✅ MongoDB running at %s:%s\n", mongoHost, mongoPort)

	// **啟動 Redis**
	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		log.Fatalf("❌ Failed to start Redis container: %v", err)
	}
	fmt.Printf("✅ Redis running at %s:%s\n", redisHost, redisPort)

	port, err := strconv.Atoi(mongoPort)
	if err != nil {
		log.Fatalf("mongo port %q: %v", mongoPort, err)
	}
	mongoDB, err = database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    database.MongoURI(mongoHost, port, "", ""),
		RetryCount:    5,
		RetryInterval: time.Second,
	}, "chat_test")
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}

	redisClient, err = database.NewRedisClient(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("%s:%s", redisHost, redisPort),
		RetryCount:    5,
		RetryInterval: time.Second,
	}, 0)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}

	// **執行測試**
	code := m.Run()

	// **停止測試容器**
	_ = redisClient.Close()
	_ = mongoDB.Close(ctx)
	_ = mongoContainer.Terminate(ctx)
	_ = redisContainer.Terminate(ctx)

	os.Exit(code)
}

func TestMongoMessageArchive(t *testing.T) {
	ctx := context.Background()
	archive := NewMongoMessageArchive(mongoDB.Database)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	first := domain.Message{ID: "m1", RoomID: "archive-room", UserID: "u-alice", Username: "alice", Text: "first", Timestamp: base}
	second := domain.Message{ID: "m2", RoomID: "archive-room", UserID: "u-bob", Username: "bob", Text: "second", Timestamp: base.Add(time.Second)}

	require.NoError(t, archive.Archive(ctx, second))
	require.NoError(t, archive.Archive(ctx, first))
	// 重複寫入不會產生第二筆
	require.NoError(t, archive.Archive(ctx, first))
	require.NoError(t, archive.Archive(ctx, domain.Message{ID: "m3", RoomID: "other-room", Text: "elsewhere", Timestamp: base}))

	got, err := findArchivedByRoom(ctx, mongoDB.Database, "archive-room")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "m2", got[1].ID)
	assert.True(t, got[1].Timestamp.Equal(base.Add(time.Second)))
}

func TestRedisPubSubMirror(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := NewRedisPubSub(redisClient, "chat-test")
	roomFrames := make(chan domain.WSRequest, 1)
	globalFrames := make(chan domain.WSRequest, 1)

	require.NoError(t, subscribeFrames(ctx, pubsub.RoomChannel("global"), func(frame domain.WSRequest) { roomFrames <- frame }))
	require.NoError(t, subscribeFrames(ctx, pubsub.GlobalChannel(), func(frame domain.WSRequest) { globalFrames <- frame }))

	require.NoError(t, pubsub.MirrorRoom(ctx, "global", domain.WSResponse{Event: domain.NewMessage, Data: domain.DeliveredAck{MessageID: "m1"}}))
	require.NoError(t, pubsub.MirrorGlobal(ctx, domain.WSResponse{Event: domain.NewRoom, Data: domain.RoomSummary{ID: "devs", Name: "devs"}}))

	select {
	case frame := <-roomFrames:
		assert.Equal(t, domain.NewMessage, frame.Event)
		assert.JSONEq(t, `{"messageId":"m1"}`, string(frame.Data))
	case <-time.After(5 * time.Second):
		t.Fatal("room frame not mirrored")
	}

	select {
	case frame := <-globalFrames:
		assert.Equal(t, domain.NewRoom, frame.Event)
		assert.JSONEq(t, `{"id":"devs","name":"devs","memberCount":0}`, string(frame.Data))
	case <-time.After(5 * time.Second):
		t.Fatal("global frame not mirrored")
	}
}

// findArchivedByRoom reads the archived messages of a room in timestamp order
func findArchivedByRoom(ctx context.Context, db *mongo.Database, roomID string) ([]archivedMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := db.Collection(archiveCollection).Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []archivedMessage
	err = cur.All(ctx, &docs)
	return docs, err
}

// subscribeFrames calls handler for every frame published on channel until ctx is done
func subscribeFrames(ctx context.Context, channel string, handler func(frame domain.WSRequest)) error {
	sub := redisClient.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				var frame domain.WSRequest
				if err := json.Unmarshal([]byte(m.Payload), &frame); err != nil {
					continue
				}
				handler(frame)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
