package repository

import (
	"context"
	"errors"
	"time"

	"collabcore/internal/collab/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *MongoRepository) FindRoom(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	err := r.Rooms.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find_room", err)
	}
	return &room, nil
}

func (r *MongoRepository) CreateRoom(ctx context.Context, room *model.Room) error {
	if room.ID == "" {
		room.ID = newID()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	_, err := r.Rooms.InsertOne(ctx, room)
	return wrapErr("create_room", err)
}

func (r *MongoRepository) UpdateRoomStatus(ctx context.Context, roomID string, status model.TicketStatus) error {
	res, err := r.Rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return wrapErr("update_room_status", err)
	}
	if res.MatchedCount == 0 {
		return model.NotFound("room", roomID)
	}
	return nil
}

func (r *MongoRepository) RenameRoom(ctx context.Context, roomID, name string) error {
	res, err := r.Rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{"name": name, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return wrapErr("rename_room", err)
	}
	if res.MatchedCount == 0 {
		return model.NotFound("room", roomID)
	}
	return nil
}

func (r *MongoRepository) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := r.Rooms.DeleteOne(ctx, bson.M{"_id": roomID})
	if err != nil {
		return wrapErr("delete_room", err)
	}
	if res.DeletedCount == 0 {
		return model.NotFound("room", roomID)
	}
	return nil
}

func (r *MongoRepository) ListRoomIDs(ctx context.Context, q model.RoomQuery) ([]string, error) {
	filter := bson.M{}
	if len(q.Types) > 0 {
		filter["type"] = bson.M{"$in": q.Types}
	}
	if q.Department != "" {
		filter["department"] = q.Department
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.Rooms.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr("list_room_ids", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, wrapErr("list_room_ids", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (r *MongoRepository) LockRoom(ctx context.Context, roomID string) error {
	res, err := r.Rooms.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$inc": bson.M{"membership_version": 1}},
	)
	if err != nil {
		return wrapErr("lock_room", err)
	}
	if res.MatchedCount == 0 {
		return model.NotFound("room", roomID)
	}
	return nil
}

// QueryRooms serves the room.created and ticket.created feed sources.
func (r *MongoRepository) QueryRooms(ctx context.Context, f model.SourceFilter, limit int) ([]*model.Room, error) {
	filter := bson.M{}
	if f.RoomIDs != nil {
		filter["_id"] = bson.M{"$in": f.RoomIDs}
	}
	if len(f.RoomTypes) > 0 {
		filter["type"] = bson.M{"$in": f.RoomTypes}
	}
	if f.Before != nil {
		filter["created_at"] = bson.M{"$lte": *f.Before}
	}

	cursor, err := r.Rooms.Find(ctx, filter, descending(limit))
	if err != nil {
		return nil, wrapErr("query_rooms", err)
	}
	defer cursor.Close(ctx)

	var rooms []*model.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, wrapErr("query_rooms", err)
	}
	return rooms, nil
}

func descending(limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
}
