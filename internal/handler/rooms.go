package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/request"
)

type roomRequest struct {
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,gt=0,max=1000"`
}

func (r *roomRequest) Check(model.Date) []apperr.FieldError {
	return request.TextLength("name", r.Name, 2, 100)
}

type slotRequest struct {
	StartTime   string `json:"start_time" binding:"required,datetime=15:04"`
	EndTime     string `json:"end_time" binding:"required,datetime=15:04"`
	DayOfWeek   string `json:"day_of_week" binding:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	IsRecurring bool   `json:"is_recurring"`
}

func (r *slotRequest) Check(model.Date) []apperr.FieldError {
	return request.ClockOrder(r.StartTime, r.EndTime)
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.svc.Rooms(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rooms)
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req roomRequest
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	r := &model.Room{Name: strings.TrimSpace(req.Name), Capacity: req.Capacity, IsActive: true}
	if err := h.dir.CreateRoom(c.Request.Context(), r); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusCreated, "Room created successfully", r)
}

func (h *Handler) AvailableRooms(c *gin.Context) {
	var q request.Interval
	if err := h.bindQuery(c, &q); err != nil {
		fail(c, err)
		return
	}
	date, start, end := q.Values()
	rooms, err := h.svc.AvailableRooms(c.Request.Context(), date, start, end)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rooms)
}

func (h *Handler) RoomAvailability(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var q request.Interval
	if err := h.bindQuery(c, &q); err != nil {
		fail(c, err)
		return
	}
	date, start, end := q.Values()
	free, err := h.svc.IsRoomAvailable(c.Request.Context(), id, date, start, end)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"room_id":    id,
		"date":       q.Date,
		"start_time": q.StartTime,
		"end_time":   q.EndTime,
		"available":  free,
	})
}

func (h *Handler) ListTimeSlots(c *gin.Context) {
	slots, err := h.svc.TimeSlots(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, slots)
}

func (h *Handler) CreateTimeSlot(c *gin.Context) {
	var req slotRequest
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	s := &model.TimeSlot{
		StartTime:   request.ParseClock(req.StartTime),
		EndTime:     request.ParseClock(req.EndTime),
		DayOfWeek:   req.DayOfWeek,
		IsRecurring: req.IsRecurring,
	}
	if err := h.dir.CreateTimeSlot(c.Request.Context(), s); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusCreated, "Time slot created successfully", s)
}

func (h *Handler) AvailableTimeSlots(c *gin.Context) {
	var q request.UserDay
	if err := h.bindQuery(c, &q); err != nil {
		fail(c, err)
		return
	}
	slots, err := h.svc.AvailableTimeSlots(c.Request.Context(), q.UserID, request.ParseDate(q.Date))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, slots)
}
