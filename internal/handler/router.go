package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"meeting-scheduler-api/internal/middleware"
	"meeting-scheduler-api/internal/model"
)

// Router builds the REST routes. rl, when set, guards the unauthenticated
// auth endpoints.
func (h *Handler) Router(origins []string, rl *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(origins)))

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/health/db", h.HealthDB)

	open := api.Group("/auth")
	if rl != nil {
		open.Use(middleware.RateLimit(rl))
	}
	open.POST("/register", h.Register)
	open.POST("/login", h.Login)
	open.POST("/verify", h.Verify)
	open.POST("/refresh", h.Refresh)

	authed := api.Group("")
	authed.Use(middleware.Auth(h.verifier))
	admin := middleware.RequireRole(model.RoleAdmin)

	authed.POST("/auth/logout", h.Logout)

	users := authed.Group("/users")
	users.POST("", admin, h.CreateUser)
	users.GET("/:id", h.GetUser)
	users.PATCH("/:id/role", admin, h.UpdateUserRole)
	users.PUT("/:id/availability", h.SetAvailability)
	users.GET("/:id/schedule", h.UserSchedule)
	users.GET("/:id/conflicts", h.UserConflicts)
	users.GET("/:id/calendar.ics", h.UserCalendar)

	meetings := authed.Group("/meetings")
	meetings.POST("", h.CreateMeeting)
	meetings.POST("/schedule", h.ScheduleMeeting)
	meetings.GET("/upcoming", h.UpcomingMeetings)
	meetings.POST("/search", h.SearchMeetings)
	meetings.GET("/:id", h.GetMeeting)
	meetings.DELETE("/:id", h.CancelMeeting)
	meetings.PATCH("/:id/status", h.SetMeetingStatus)
	meetings.POST("/:id/respond", h.RespondToMeeting)

	rooms := authed.Group("/rooms")
	rooms.GET("", h.ListRooms)
	rooms.POST("", admin, h.CreateRoom)
	rooms.GET("/available", h.AvailableRooms)
	rooms.GET("/:id/availability", h.RoomAvailability)

	slots := authed.Group("/timeslots")
	slots.GET("", h.ListTimeSlots)
	slots.POST("", admin, h.CreateTimeSlot)
	slots.GET("/available", h.AvailableTimeSlots)

	authed.GET("/analytics/meetings", middleware.RequireRole(model.RoleProfessor, model.RoleAdmin), h.MeetingAnalytics)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
