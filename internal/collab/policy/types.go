package policy

import "collabcore/internal/collab/model"

// Operation names a room-level action governed by the role table.
type Operation string

const (
	OpInviteMember       Operation = "invite_member"
	OpRemoveMember       Operation = "remove_member"
	OpUpdateRole         Operation = "update_role"
	OpTransferOwnership  Operation = "transfer_ownership"
	OpAssignTicket       Operation = "assign_ticket"
	OpLeaveRoom          Operation = "leave_room"
	OpChangeTicketStatus Operation = "change_ticket_status"
	OpEditRoom           Operation = "edit_room"
	OpDeleteRoom         Operation = "delete_room"
	OpModerateMessage    Operation = "moderate_message"
)

// RoleNone stands for "no membership" on either side of a transition.
const RoleNone model.MemberRole = "NONE"

// SelfRule defines whether the target of an operation may be the caller.
type SelfRule string

const (
	SelfAny       SelfRule = ""
	SelfForbidden SelfRule = "forbidden"
	SelfRequired  SelfRule = "required"
)

// OperationPolicy defines the caller requirements for an operation
type OperationPolicy struct {
	AllowedRoles   []model.MemberRole `json:"allowed_roles,omitempty"`
	GlobalRole     model.GlobalRole   `json:"global_role,omitempty"`
	DenyCode       model.ErrorCode    `json:"deny_code"`
	RoomTypes      []model.RoomType   `json:"room_types,omitempty"`
	Self           SelfRule           `json:"self,omitempty"`
	TargetRequired bool               `json:"target_required,omitempty"`
	Idempotent     bool               `json:"idempotent,omitempty"` // existing target membership short-circuits as success
	SwapsOwner     bool               `json:"swaps_owner,omitempty"` // the current OWNER is demoted as part of the operation
}

// Transitions maps a target's current role to the roles it may move to.
type Transitions map[model.MemberRole][]model.MemberRole

// RolePolicy is the whole room role table.
type RolePolicy struct {
	Operations  map[Operation]*OperationPolicy `json:"operations"`
	Transitions map[Operation]Transitions      `json:"transitions"`
}

// Mutation is the input for validating a membership change
type Mutation struct {
	Op               Operation
	Caller           *model.User
	CallerMembership *model.Membership // nil when the caller is not a member
	RoomType         model.RoomType
	TargetUserID     string
	Target           *model.Membership // nil when the target is not a member
	NewRole          model.MemberRole  // empty means the target leaves the room
	OwnersBefore     int64
	MembersBefore    int64
}
