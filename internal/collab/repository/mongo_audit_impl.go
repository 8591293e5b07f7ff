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

// EnsureAuditIndexes creates indexes for efficient audit querying
func (r *MongoRepository) EnsureAuditIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Feed source: newest first
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
		// Room scoped listing
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_room_query"),
		},
		{
			Keys: bson.D{
				{Key: "action", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_action_query"),
		},
	}

	_, err := r.Audit.Indexes().CreateMany(ctx, indexes)
	return err
}

// Append inserts an audit record (append-only)
func (r *MongoRepository) Append(ctx context.Context, record *model.AuditRecord) error {
	if record.ID == "" {
		record.ID = newID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := r.Audit.InsertOne(ctx, record)
	return wrapErr("append_audit", err)
}

func (r *MongoRepository) FindAuditRecord(ctx context.Context, recordID string) (*model.AuditRecord, error) {
	var rec model.AuditRecord
	err := r.Audit.FindOne(ctx, bson.M{"_id": recordID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find_audit_record", err)
	}
	return &rec, nil
}

// QueryAuditRecords serves the audit feed source.
func (r *MongoRepository) QueryAuditRecords(ctx context.Context, f model.SourceFilter, limit int) ([]*model.AuditRecord, error) {
	filter := bson.M{}
	if len(f.Actions) > 0 {
		filter["action"] = bson.M{"$in": f.Actions}
	}
	if f.RoomIDs != nil {
		or := bson.A{
			bson.M{"room_id": bson.M{"$in": f.RoomIDs}},
			bson.M{"target_id": bson.M{"$in": f.RoomIDs}},
		}
		if f.ActorID != "" {
			or = append(or, bson.M{"actor_id": f.ActorID})
		}
		filter["$or"] = or
	}
	if f.Before != nil {
		filter["created_at"] = bson.M{"$lte": *f.Before}
	}

	cursor, err := r.Audit.Find(ctx, filter, descending(limit))
	if err != nil {
		return nil, wrapErr("query_audit_records", err)
	}
	defer cursor.Close(ctx)

	var records []*model.AuditRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, wrapErr("query_audit_records", err)
	}
	return records, nil
}

// FindAuditRecords finds audit records with pagination and filtering
func (r *MongoRepository) FindAuditRecords(ctx context.Context, q model.AuditQuery) ([]*model.AuditRecord, int64, error) {
	filter := bson.M{}
	if q.Action != "" {
		filter["action"] = q.Action
	}
	if q.ActorID != "" {
		filter["actor_id"] = q.ActorID
	}
	if q.RoomID != "" {
		filter["room_id"] = q.RoomID
	}

	// Count total records
	total, err := r.Audit.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, wrapErr("count_audit_records", err)
	}

	skip := int64((q.Page - 1) * q.Size)
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(q.Size))

	cursor, err := r.Audit.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, wrapErr("find_audit_records", err)
	}
	defer cursor.Close(ctx)

	var results []*model.AuditRecord
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, wrapErr("find_audit_records", err)
	}

	return results, total, nil
}
