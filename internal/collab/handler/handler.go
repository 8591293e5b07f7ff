package handler

import (
	"net/http"

	"collabcore/internal/collab/model"
	"collabcore/internal/collab/service"

	"github.com/labstack/echo/v4"
)

type CollabHandler struct {
	Service service.CollabService
}

func NewCollabHandler(s service.CollabService) *CollabHandler {
	return &CollabHandler{Service: s}
}

type validatable interface {
	Validate() error
}

func (h *CollabHandler) extractCallerID(c echo.Context) (string, error) {
	callerID := c.Request().Header.Get(HeaderUserID)
	if callerID == "" {
		return "", model.ErrUnauthorized
	}
	return callerID, nil
}

// bind reads path, query and body parameters into req and validates it.
func (h *CollabHandler) bind(c echo.Context, req validatable) error {
	if err := c.Bind(req); err != nil {
		return model.NewValidationError("", "invalid request parameters")
	}
	return req.Validate()
}

func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func success(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}
