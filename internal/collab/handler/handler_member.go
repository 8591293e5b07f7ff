package handler

import (
	"net/http"

	"collabcore/internal/collab/model"

	"github.com/labstack/echo/v4"
)

// GetMembers handles GET /rooms/:room_id/members
func (h *CollabHandler) GetMembers(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.RoomPathReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	members, err := h.Service.ListMembers(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	if members == nil {
		members = []*model.Membership{}
	}
	return c.JSON(http.StatusOK, members)
}

// PostMember handles POST /rooms/:room_id/members (invite)
func (h *CollabHandler) PostMember(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.InviteMemberReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	membership, err := h.Service.InviteMember(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, membership)
}

// DeleteMember handles DELETE /rooms/:room_id/members/:user_id
func (h *CollabHandler) DeleteMember(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.RemoveMemberReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.Service.RemoveMember(c.Request().Context(), callerID, req); err != nil {
		return respondError(c, err)
	}
	return success(c)
}

// PutMemberRole handles PUT /rooms/:room_id/members/:user_id/role
func (h *CollabHandler) PutMemberRole(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.UpdateMemberRoleReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	membership, err := h.Service.UpdateMemberRole(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, membership)
}

// PutRoomOwner handles PUT /rooms/:room_id/owner (transfer ownership)
func (h *CollabHandler) PutRoomOwner(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.TransferOwnershipReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.Service.TransferOwnership(c.Request().Context(), callerID, req); err != nil {
		return respondError(c, err)
	}
	return success(c)
}

// DeleteMembership handles DELETE /rooms/:room_id/membership (leave)
func (h *CollabHandler) DeleteMembership(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.RoomPathReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.Service.LeaveRoom(c.Request().Context(), callerID, req); err != nil {
		return respondError(c, err)
	}
	return success(c)
}
