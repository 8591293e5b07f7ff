package memstore

import (
	"context"
	"sort"
	"time"

	"collabcore/internal/collab/model"

	"github.com/google/uuid"
)

// Append stores an audit record. Records are never mutated afterwards.
func (s *Store) Append(ctx context.Context, record *model.AuditRecord) error {
	defer s.lock(ctx)()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.Now()
	}
	cp := *record
	s.audit = append(s.audit, &cp)
	return nil
}

func (s *Store) FindAuditRecord(ctx context.Context, recordID string) (*model.AuditRecord, error) {
	defer s.lock(ctx)()
	for _, rec := range s.audit {
		if rec.ID == recordID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) QueryAuditRecords(ctx context.Context, f model.SourceFilter, limit int) ([]*model.AuditRecord, error) {
	defer s.lock(ctx)()
	var out []*model.AuditRecord
	for _, rec := range s.audit {
		if len(f.Actions) > 0 && !containsString(f.Actions, rec.Action) {
			continue
		}
		if f.RoomIDs != nil &&
			!containsString(f.RoomIDs, rec.RoomID) &&
			!containsString(f.RoomIDs, rec.TargetID) &&
			(f.ActorID == "" || rec.ActorID != f.ActorID) {
			continue
		}
		if !notAfter(rec.CreatedAt, f.Before) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return truncate(out, limit), nil
}

func (s *Store) QueryRooms(ctx context.Context, f model.SourceFilter, limit int) ([]*model.Room, error) {
	defer s.lock(ctx)()
	var out []*model.Room
	for _, room := range s.rooms {
		if f.RoomIDs != nil && !containsString(f.RoomIDs, room.ID) {
			continue
		}
		if len(f.RoomTypes) > 0 && !containsType(f.RoomTypes, room.Type) {
			continue
		}
		if !notAfter(room.CreatedAt, f.Before) {
			continue
		}
		cp := *room
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return truncate(out, limit), nil
}

func (s *Store) QueryMessages(ctx context.Context, f model.SourceFilter, limit int) ([]*model.Message, error) {
	defer s.lock(ctx)()
	var out []*model.Message
	for _, msg := range s.messages {
		if msg.DeletedAt != nil {
			continue
		}
		if f.RoomIDs != nil && !containsString(f.RoomIDs, msg.RoomID) {
			continue
		}
		if !notAfter(msg.CreatedAt, f.Before) {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return truncate(out, limit), nil
}

func (s *Store) FindAuditRecords(ctx context.Context, q model.AuditQuery) ([]*model.AuditRecord, int64, error) {
	defer s.lock(ctx)()
	var matched []*model.AuditRecord
	for _, rec := range s.audit {
		if q.Action != "" && rec.Action != q.Action {
			continue
		}
		if q.ActorID != "" && rec.ActorID != q.ActorID {
			continue
		}
		if q.RoomID != "" && rec.RoomID != q.RoomID {
			continue
		}
		cp := *rec
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].CreatedAt, matched[i].ID, matched[j].CreatedAt, matched[j].ID)
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.Size
	if start < 0 || start >= len(matched) {
		return []*model.AuditRecord{}, total, nil
	}
	end := start + q.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func newerFirst(at time.Time, id string, bt time.Time, bid string) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return id > bid
}

func notAfter(t time.Time, before *time.Time) bool {
	return before == nil || !t.After(*before)
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func containsString(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
