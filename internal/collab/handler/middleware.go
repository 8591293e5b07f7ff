package handler

import (
	"math"
	"net/http"
	"strconv"

	"collabcore/internal/collab/model"
	"collabcore/internal/collab/ratelimit"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	HeaderUserID             = "x-user-id"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := c.Request().Header.Get(echo.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, reqID)
		return next(c)
	}
}

// RateLimitMiddleware throttles requests per caller, falling back to the
// client IP for anonymous requests.
func RateLimitMiddleware(limiter *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}

			key := "user:" + c.Request().Header.Get(HeaderUserID)
			if key == "user:" {
				key = "ip:" + c.RealIP()
			}

			d := limiter.Allow(c.Request().Context(), key)
			reset := strconv.Itoa(int(math.Ceil(d.ResetIn.Seconds())))
			h := c.Response().Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
			h.Set(HeaderRateLimitReset, reset)

			if !d.Allowed {
				h.Set(echo.HeaderRetryAfter, reset)
				return c.JSON(http.StatusTooManyRequests, model.ErrorResponse{
					Error: model.ErrorDetail{
						Code:      string(model.CodeRateLimited),
						Message:   "Too many requests",
						RequestID: h.Get(echo.HeaderXRequestID),
					},
				})
			}
			return next(c)
		}
	}
}
