package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"group_chat_service/internal/chat/domain"

	"github.com/go-redis/redis/v8"
)

// EventMirror receives a copy of every room or global fanout. It never feeds back into the engine.
type EventMirror interface {
	MirrorRoom(ctx context.Context, roomID string, resp domain.WSResponse) error
	MirrorGlobal(ctx context.Context, resp domain.WSResponse) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
	prefix string
}

// NewRedisPubSub create RedisPubSub publishing under prefix
func NewRedisPubSub(client *redis.Client, prefix string) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		prefix: prefix,
	}
}

// RoomChannel channel name of a room
func (r *RedisPubSub) RoomChannel(roomID string) string {
	return fmt.Sprintf("%s:room:%s", r.prefix, roomID)
}

// GlobalChannel channel name of process wide events
func (r *RedisPubSub) GlobalChannel() string {
	return r.prefix + ":global"
}

// Publish serializes message and publishes it on channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// MirrorRoom publishes resp on the room channel.
func (r *RedisPubSub) MirrorRoom(ctx context.Context, roomID string, resp domain.WSResponse) error {
	return r.Publish(ctx, r.RoomChannel(roomID), resp)
}

// MirrorGlobal publishes resp on the global channel.
func (r *RedisPubSub) MirrorGlobal(ctx context.Context, resp domain.WSResponse) error {
	return r.Publish(ctx, r.GlobalChannel(), resp)
}
