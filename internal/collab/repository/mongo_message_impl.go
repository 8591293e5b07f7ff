package repository

import (
	"context"
	"errors"
	"time"

	"collabcore/internal/collab/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (r *MongoRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := r.Messages.InsertOne(ctx, msg)
	return wrapErr("create_message", err)
}

func (r *MongoRepository) FindMessage(ctx context.Context, messageID string) (*model.Message, error) {
	var msg model.Message
	err := r.Messages.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find_message", err)
	}
	return &msg, nil
}

func (r *MongoRepository) SoftDeleteMessage(ctx context.Context, messageID, deletedBy string) error {
	res, err := r.Messages.UpdateOne(ctx,
		bson.M{"_id": messageID, "deleted_at": nil},
		bson.M{"$set": bson.M{"deleted_at": time.Now().UTC(), "deleted_by": deletedBy}},
	)
	if err != nil {
		return wrapErr("soft_delete_message", err)
	}
	if res.MatchedCount == 0 {
		return model.NotFound("message", messageID)
	}
	return nil
}

func (r *MongoRepository) DeleteRoomMessages(ctx context.Context, roomID string) error {
	_, err := r.Messages.DeleteMany(ctx, bson.M{"room_id": roomID})
	return wrapErr("delete_room_messages", err)
}

// QueryMessages serves the message.posted feed source. Soft-deleted rows are excluded.
func (r *MongoRepository) QueryMessages(ctx context.Context, f model.SourceFilter, limit int) ([]*model.Message, error) {
	filter := bson.M{"deleted_at": nil}
	if f.RoomIDs != nil {
		filter["room_id"] = bson.M{"$in": f.RoomIDs}
	}
	if f.Before != nil {
		filter["created_at"] = bson.M{"$lte": *f.Before}
	}

	cursor, err := r.Messages.Find(ctx, filter, descending(limit))
	if err != nil {
		return nil, wrapErr("query_messages", err)
	}
	defer cursor.Close(ctx)

	var msgs []*model.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, wrapErr("query_messages", err)
	}
	return msgs, nil
}
