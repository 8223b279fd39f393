package repository

import (
	"context"
	"time"

	"group_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageArchive durable copy of appended messages, written through and never read back live
type MessageArchive interface {
	Archive(ctx context.Context, msg domain.Message) error
}

const archiveCollection = "chat_messages"

// archivedMessage mongo document of one message
type archivedMessage struct {
	ID        string    `bson:"_id"`
	RoomID    string    `bson:"room_id"`
	UserID    string    `bson:"user_id"`
	Username  string    `bson:"username"`
	Avatar    string    `bson:"avatar,omitempty"`
	Text      string    `bson:"text"`
	Timestamp time.Time `bson:"timestamp"`
}

type mongoMessageArchive struct {
	coll *mongo.Collection
}

// NewMongoMessageArchive create a message archive on the chat_messages collection
func NewMongoMessageArchive(db *mongo.Database) MessageArchive {
	return &mongoMessageArchive{
		coll: db.Collection(archiveCollection),
	}
}

// Archive upserts by message id so a retried write does not duplicate.
func (r *mongoMessageArchive) Archive(ctx context.Context, msg domain.Message) error {
	doc := archivedMessage{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Avatar:    msg.Avatar,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": msg.ID}, doc, options.Replace().SetUpsert(true))
	return err
}
