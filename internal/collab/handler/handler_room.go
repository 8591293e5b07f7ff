package handler

import (
	"net/http"

	"collabcore/internal/collab/model"

	"github.com/labstack/echo/v4"
)

// PostRoom handles POST /rooms
func (h *CollabHandler) PostRoom(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.CreateRoomReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	room, err := h.Service.CreateRoom(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, room)
}

// PatchRoom handles PATCH /rooms/:room_id
func (h *CollabHandler) PatchRoom(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.RenameRoomReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	room, err := h.Service.RenameRoom(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, room)
}

// DeleteRoom handles DELETE /rooms/:room_id
func (h *CollabHandler) DeleteRoom(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.RoomPathReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.Service.DeleteRoom(c.Request().Context(), callerID, req); err != nil {
		return respondError(c, err)
	}
	return success(c)
}

// PostTicket handles POST /tickets
func (h *CollabHandler) PostTicket(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.CreateTicketReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ticket, err := h.Service.CreateTicket(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, ticket)
}

// PutTicketAssignee handles PUT /tickets/:room_id/assignee
func (h *CollabHandler) PutTicketAssignee(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.AssignTicketReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.Service.AssignTicket(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// PutTicketStatus handles PUT /tickets/:room_id/status
func (h *CollabHandler) PutTicketStatus(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.ChangeTicketStatusReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ticket, err := h.Service.ChangeTicketStatus(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ticket)
}
