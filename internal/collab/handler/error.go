package handler

import (
	"net/http"

	"collabcore/internal/collab/model"
	"collabcore/internal/collab/util"

	"github.com/labstack/echo/v4"
)

// httpError maps an error to its HTTP status and response body.
func httpError(c echo.Context, err error) (int, model.ErrorResponse) {
	code := model.CodeOf(err)
	msg := err.Error()

	var status int
	switch code {
	case model.CodeInvalidRequest:
		status = http.StatusBadRequest
	case model.CodeUnauthorized:
		status = http.StatusUnauthorized
	case model.CodeInsufficientRole, model.CodeNotMember, model.CodeForbidden:
		status = http.StatusForbidden
	case model.CodeNotFound:
		status = http.StatusNotFound
	case model.CodeRateLimited:
		status = http.StatusTooManyRequests
	case model.CodeUnavailable:
		status = http.StatusServiceUnavailable
		msg = "Service temporarily unavailable"
	default:
		code = model.CodeInternal
		status = http.StatusInternalServerError
		msg = "Internal server error"
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if status >= http.StatusInternalServerError {
		util.GetLogger().Error("request failed",
			"request_id", requestID,
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	return status, model.ErrorResponse{
		Error: model.ErrorDetail{Code: string(code), Message: msg, RequestID: requestID},
	}
}

func respondError(c echo.Context, err error) error {
	status, body := httpError(c, err)
	return c.JSON(status, body)
}
