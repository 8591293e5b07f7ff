package repository

import (
	"context"
	"errors"

	"collabcore/internal/collab/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections names the MongoDB collections backing the store.
type Collections struct {
	Users       string
	Rooms       string
	Memberships string
	Messages    string
	Audit       string
}

type MongoRepository struct {
	Users       *mongo.Collection
	Rooms       *mongo.Collection
	Memberships *mongo.Collection
	Messages    *mongo.Collection
	Audit       *mongo.Collection
	Client      *mongo.Client // for transactions
}

func NewMongoRepository(db *mongo.Database, names Collections) *MongoRepository {
	return &MongoRepository{
		Users:       db.Collection(names.Users),
		Rooms:       db.Collection(names.Rooms),
		Memberships: db.Collection(names.Memberships),
		Messages:    db.Collection(names.Messages),
		Audit:       db.Collection(names.Audit),
		Client:      db.Client(),
	}
}

func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	// 1. One membership per (room, user)
	idxMembershipUnique := mongo.IndexModel{
		Keys: bson.D{
			{Key: "room_id", Value: 1},
			{Key: "user_id", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("uniq_user_per_room"),
	}

	// 2. At most one OWNER per room
	idxRoomOwner := mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetName("unique_room_owner").
			SetPartialFilterExpression(bson.M{"role": model.MemberRoleOwner}),
	}

	// 3. Scope resolution: all memberships of a user
	idxMembershipUser := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "room_type", Value: 1}},
		Options: options.Index().SetName("idx_user_memberships"),
	}

	if _, err := r.Memberships.Indexes().CreateMany(ctx, []mongo.IndexModel{idxMembershipUnique, idxRoomOwner, idxMembershipUser}); err != nil {
		return err
	}

	if _, err := r.Rooms.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_type_created_at"),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "department", Value: 1}},
			Options: options.Index().SetName("idx_type_department"),
		},
	}); err != nil {
		return err
	}

	if _, err := r.Messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_room_created_at"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	}); err != nil {
		return err
	}

	return r.EnsureAuditIndexes(ctx)
}

// WithTransaction runs fn inside a MongoDB session transaction. The driver
// retries fn on transient transaction errors, including write conflicts on
// the room document bumped by LockRoom.
func (r *MongoRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.Client.StartSession()
	if err != nil {
		return wrapErr("start_session", err)
	}
	defer session.EndSession(ctx)

	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	}

	_, err = session.WithTransaction(ctx, callback)
	return err
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// wrapErr maps driver failures to the core's error taxonomy.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	retryable := mongo.IsTimeout(err) || mongo.IsNetworkError(err) || errors.Is(err, context.DeadlineExceeded)
	return &model.InfrastructureError{Op: op, Retryable: retryable, Err: err}
}
