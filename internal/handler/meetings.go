package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/request"
	"meeting-scheduler-api/internal/scheduling"
)

type upcomingQuery struct {
	UserID *int64 `form:"user_id" binding:"omitempty,gt=0"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// CreateMeeting books a meeting organized by the caller. Participants are
// invited as pending. The room check is advisory; see scheduling.CreateMeeting.
func (h *Handler) CreateMeeting(c *gin.Context) {
	h.createMeeting(c, h.svc.CreateMeeting, "Meeting created successfully")
}

// ScheduleMeeting books a meeting with the caller and every participant
// already accepted.
func (h *Handler) ScheduleMeeting(c *gin.Context) {
	h.createMeeting(c, h.svc.ScheduleMeeting, "Meeting scheduled successfully")
}

func (h *Handler) createMeeting(c *gin.Context, create func(context.Context, scheduling.NewMeeting) (int64, error), msg string) {
	var req request.Meeting
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	n := req.Build(principal(ctx).UserID)

	if n.RoomID != nil {
		slot, err := h.svc.TimeSlot(ctx, n.SlotID)
		if err != nil {
			fail(c, err)
			return
		}
		free, err := h.svc.IsRoomAvailable(ctx, *n.RoomID, n.Date, slot.StartTime, slot.EndTime)
		if err != nil {
			fail(c, err)
			return
		}
		if !free {
			fail(c, apperr.Conflict("Room is not available at the requested time", nil))
			return
		}
	}

	id, err := create(ctx, n)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusCreated, msg, gin.H{"meeting_id": id})
}

func (h *Handler) UpcomingMeetings(c *gin.Context) {
	var q upcomingQuery
	if err := h.bindQuery(c, &q); err != nil {
		fail(c, err)
		return
	}
	entries, err := h.svc.UpcomingMeetings(c.Request.Context(), q.UserID, q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

func (h *Handler) SearchMeetings(c *gin.Context) {
	var req request.Search
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	found, err := h.svc.SearchMeetings(c.Request.Context(), req.Filters())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"meetings": found, "count": len(found)})
}

func (h *Handler) GetMeeting(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	m, err := h.svc.MeetingDetails(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

func (h *Handler) CancelMeeting(c *gin.Context) {
	id, err := h.organizedMeeting(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.CancelMeeting(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "Meeting cancelled", gin.H{"meeting_id": id, "status": model.StatusCancelled})
}

func (h *Handler) SetMeetingStatus(c *gin.Context) {
	id, err := h.organizedMeeting(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=scheduled completed cancelled"`
	}
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	status := model.MeetingStatus(req.Status)
	if err := h.svc.SetMeetingStatus(c.Request.Context(), id, status); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "Meeting status updated", gin.H{"meeting_id": id, "status": status})
}

// RespondToMeeting records the caller's answer. Admins may answer on behalf
// of another participant by passing user_id.
func (h *Handler) RespondToMeeting(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req request.Respond
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	p := principal(ctx)
	userID := p.UserID
	if req.UserID != nil && *req.UserID != p.UserID {
		if !p.HasRole(model.RoleAdmin) {
			fail(c, apperr.Forbidden("You can only respond for yourself"))
			return
		}
		userID = *req.UserID
	}
	if _, err := h.svc.MeetingDetails(ctx, id); err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.Respond(ctx, id, userID, model.Response(req.Response)); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "Response recorded", gin.H{"meeting_id": id, "user_id": userID, "response": req.Response})
}

// organizedMeeting loads the :id meeting and checks the caller organizes it
// or is an admin.
func (h *Handler) organizedMeeting(c *gin.Context) (int64, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return 0, err
	}
	m, err := h.svc.MeetingDetails(c.Request.Context(), id)
	if err != nil {
		return 0, err
	}
	p := principal(c.Request.Context())
	if m.CreatedBy != p.UserID && !p.HasRole(model.RoleAdmin) {
		return 0, apperr.Forbidden("Only the organizer can change this meeting")
	}
	return id, nil
}
