package router

import (
	"collabcore/internal/collab/handler"
	"collabcore/internal/collab/metrics"
	"collabcore/internal/collab/ratelimit"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the shared pieces the routes need besides the handler.
type Deps struct {
	Metrics  *metrics.Metrics
	Limiter  *ratelimit.Limiter
	Gatherer prometheus.Gatherer
}

func RegisterRoutes(e *echo.Echo, h *handler.CollabHandler, deps Deps) {
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.PATCH, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, handler.HeaderUserID},
	}))
	e.Use(metrics.HTTPMetricsMiddleware(deps.Metrics))

	// Health Check
	e.GET("/health", handler.HealthCheck)
	if deps.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := e.Group("/api/v1")
	v1.Use(handler.RequestIDMiddleware)
	v1.Use(handler.RateLimitMiddleware(deps.Limiter))

	// Rooms
	v1.POST("/rooms", h.PostRoom)
	v1.PATCH("/rooms/:room_id", h.PatchRoom)
	v1.DELETE("/rooms/:room_id", h.DeleteRoom)

	// Memberships
	v1.GET("/rooms/:room_id/members", h.GetMembers)
	v1.POST("/rooms/:room_id/members", h.PostMember)
	v1.DELETE("/rooms/:room_id/members/:user_id", h.DeleteMember)
	v1.PUT("/rooms/:room_id/members/:user_id/role", h.PutMemberRole)
	v1.PUT("/rooms/:room_id/owner", h.PutRoomOwner)
	v1.DELETE("/rooms/:room_id/membership", h.DeleteMembership)

	// Tickets
	v1.POST("/tickets", h.PostTicket)
	v1.PUT("/tickets/:room_id/assignee", h.PutTicketAssignee)
	v1.PUT("/tickets/:room_id/status", h.PutTicketStatus)

	// Messages
	v1.POST("/rooms/:room_id/messages", h.PostMessage)
	v1.DELETE("/rooms/:room_id/messages/:message_id", h.DeleteMessage)

	// Activity feed and raw audit log
	v1.GET("/activity", h.GetActivity)
	v1.GET("/audit", h.GetAuditRecords)
}
