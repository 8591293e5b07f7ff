package activity

import (
	"unicode/utf8"

	"collabcore/internal/collab/model"
)

// auditActivityTypes is the closed set of audit actions the feed surfaces.
var auditActivityTypes = map[string]model.ActivityType{
	model.ActionTicketStatus: model.ActivityTicketStatusChanged,
	model.ActionTicketAssign: model.ActivityTicketAssigned,
}

// AuditActionsFor returns the audit actions that normalize into one of types.
func AuditActionsFor(types map[model.ActivityType]bool) []string {
	var actions []string
	for _, action := range []string{model.ActionTicketStatus, model.ActionTicketAssign} {
		if types == nil || types[auditActivityTypes[action]] {
			actions = append(actions, action)
		}
	}
	return actions
}

func EventID(source, id string) string {
	return source + "-" + id
}

// NormalizeAuditRecord maps an audit record to a feed event, or nil when its
// action is not surfaced in the feed.
func NormalizeAuditRecord(rec *model.AuditRecord) *model.ActivityEvent {
	if rec == nil {
		return nil
	}
	typ, ok := auditActivityTypes[rec.Action]
	if !ok {
		return nil
	}

	metadata := make(map[string]any, len(rec.Metadata)+1)
	for k, v := range rec.Metadata {
		metadata[k] = v
	}
	metadata["action"] = rec.Action

	event := &model.ActivityEvent{
		ID:        EventID(model.SourceAudit, rec.ID),
		Type:      typ,
		Timestamp: rec.CreatedAt.UTC(),
		Actor:     actor(rec.ActorID),
		Metadata:  metadata,
		Source:    model.SourceAudit,
	}
	if rec.TargetID != "" {
		event.Target = &model.EventTarget{Type: rec.TargetType, ID: rec.TargetID}
	}
	return event
}

// NormalizeRoom emits a creation event for room under label, which the caller
// picks from the query the room came from.
func NormalizeRoom(room *model.Room, label model.ActivityType) *model.ActivityEvent {
	if room == nil {
		return nil
	}

	var target *model.EventTarget
	metadata := map[string]any{"roomType": string(room.Type)}

	switch label {
	case model.ActivityTicketCreated:
		target = &model.EventTarget{Type: model.TargetTypeTicket, ID: room.ID, Name: room.Name}
		if room.Department != nil {
			metadata["department"] = *room.Department
		} else {
			metadata["department"] = nil
		}
		metadata["status"] = string(room.Status)
	case model.ActivityRoomCreated:
		target = &model.EventTarget{Type: model.TargetTypeRoom, ID: room.ID, Name: room.Name}
		metadata["isPrivate"] = room.Type != model.RoomTypePublic
	default:
		return nil
	}

	return &model.ActivityEvent{
		ID:        EventID(model.SourceRoom, room.ID),
		Type:      label,
		Timestamp: room.CreatedAt.UTC(),
		Actor:     actor(room.CreatedBy),
		Target:    target,
		Metadata:  metadata,
		Source:    model.SourceRoom,
	}
}

// NormalizeMessage emits a message.posted event with a bounded content preview.
func NormalizeMessage(msg *model.Message) *model.ActivityEvent {
	if msg == nil || msg.DeletedAt != nil {
		return nil
	}

	metadata := map[string]any{
		"roomId":        msg.RoomID,
		"content":       truncate(msg.Content, model.MessagePreviewLength),
		"isThreadReply": msg.ParentMessageID != "",
	}
	if msg.ParentMessageID != "" {
		metadata["parentMessageId"] = msg.ParentMessageID
	}

	return &model.ActivityEvent{
		ID:        EventID(model.SourceMessage, msg.ID),
		Type:      model.ActivityMessagePosted,
		Timestamp: msg.CreatedAt.UTC(),
		Actor:     actor(msg.AuthorID),
		Target:    &model.EventTarget{Type: model.TargetTypeMessage, ID: msg.ID},
		Metadata:  metadata,
		Source:    model.SourceMessage,
	}
}

func actor(id string) *model.EventActor {
	if id == "" {
		return nil
	}
	return &model.EventActor{ID: id}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
