package handler

import (
	"net/http"

	"collabcore/internal/collab/model"

	"github.com/labstack/echo/v4"
)

// PostMessage handles POST /rooms/:room_id/messages
func (h *CollabHandler) PostMessage(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.PostMessageReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	msg, err := h.Service.PostMessage(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// DeleteMessage handles DELETE /rooms/:room_id/messages/:message_id
func (h *CollabHandler) DeleteMessage(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.DeleteMessageReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.Service.DeleteMessage(c.Request().Context(), callerID, req); err != nil {
		return respondError(c, err)
	}
	return success(c)
}

// GetActivity handles GET /activity
func (h *CollabHandler) GetActivity(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.GetFeedReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	page, err := h.Service.GetFeed(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	if page.Events == nil {
		page.Events = []*model.ActivityEvent{}
	}
	return c.JSON(http.StatusOK, page)
}

// GetAuditRecords handles GET /audit
func (h *CollabHandler) GetAuditRecords(c echo.Context) error {
	callerID, err := h.extractCallerID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req model.GetAuditRecordsReq
	if err := h.bind(c, &req); err != nil {
		return respondError(c, err)
	}

	page, err := h.Service.ListAuditRecords(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}
