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

func (r *MongoRepository) FindMembership(ctx context.Context, userID, roomID string) (*model.Membership, error) {
	var m model.Membership
	err := r.Memberships.FindOne(ctx, bson.M{"user_id": userID, "room_id": roomID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find_membership", err)
	}
	return &m, nil
}

func (r *MongoRepository) ListMemberships(ctx context.Context, roomID string) ([]*model.Membership, error) {
	return r.findMemberships(ctx, "list_memberships", bson.M{"room_id": roomID})
}

func (r *MongoRepository) ListUserMemberships(ctx context.Context, userID string) ([]*model.Membership, error) {
	return r.findMemberships(ctx, "list_user_memberships", bson.M{"user_id": userID})
}

func (r *MongoRepository) findMemberships(ctx context.Context, op string, filter bson.M) ([]*model.Membership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.Memberships.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer cursor.Close(ctx)

	var memberships []*model.Membership
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, wrapErr(op, err)
	}
	return memberships, nil
}

func (r *MongoRepository) FindOwner(ctx context.Context, roomID string) (*model.Membership, error) {
	var m model.Membership
	err := r.Memberships.FindOne(ctx, bson.M{"room_id": roomID, "role": model.MemberRoleOwner}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find_owner", err)
	}
	return &m, nil
}

func (r *MongoRepository) CountOwners(ctx context.Context, roomID string) (int64, error) {
	n, err := r.Memberships.CountDocuments(ctx, bson.M{"room_id": roomID, "role": model.MemberRoleOwner})
	return n, wrapErr("count_owners", err)
}

func (r *MongoRepository) CountMembers(ctx context.Context, roomID string) (int64, error) {
	n, err := r.Memberships.CountDocuments(ctx, bson.M{"room_id": roomID})
	return n, wrapErr("count_members", err)
}

func (r *MongoRepository) UpsertMembership(ctx context.Context, m *model.Membership) error {
	now := time.Now().UTC()
	m.UpdatedAt = now

	filter := bson.M{
		"user_id": m.UserID,
		"room_id": m.RoomID,
	}
	update := bson.M{
		"$set": bson.M{
			"role":       m.Role,
			"room_type":  m.RoomType,
			"updated_at": now,
			"updated_by": m.UpdatedBy,
		},
		"$setOnInsert": bson.M{
			"_id":        newID(),
			"created_at": now,
			"created_by": m.CreatedBy,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.Membership
	if err := r.Memberships.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return wrapErr("upsert_membership", err)
	}
	*m = stored
	return nil
}

func (r *MongoRepository) DeleteMembership(ctx context.Context, userID, roomID string) error {
	res, err := r.Memberships.DeleteOne(ctx, bson.M{"user_id": userID, "room_id": roomID})
	if err != nil {
		return wrapErr("delete_membership", err)
	}
	if res.DeletedCount == 0 {
		return model.NotFound("membership", userID)
	}
	return nil
}

func (r *MongoRepository) DeleteRoomMemberships(ctx context.Context, roomID string) error {
	_, err := r.Memberships.DeleteMany(ctx, bson.M{"room_id": roomID})
	return wrapErr("delete_room_memberships", err)
}
