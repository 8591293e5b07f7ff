package repository

import (
	"context"
	"errors"

	"collabcore/internal/collab/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// FindUser loads a user. Users are created at signup, outside this service.
func (r *MongoRepository) FindUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := r.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find_user", err)
	}
	return &u, nil
}
