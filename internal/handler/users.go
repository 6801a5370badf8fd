package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/auth"
	"meeting-scheduler-api/internal/calendar"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/request"
)

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,oneof=student professor admin"`
}

func (r *createUserRequest) Check(model.Date) []apperr.FieldError {
	return request.TextLength("name", r.Name, 2, 100)
}

type rangeQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

type availabilityRequest struct {
	SlotID      int64 `json:"slot_id" binding:"required,gt=0"`
	IsAvailable *bool `json:"is_available" binding:"required"`
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	u, err := h.svc.User(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, apperr.Store(err))
		return
	}
	u := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		Role:         model.Role(req.Role),
		PasswordHash: hash,
	}
	if err := h.dir.CreateUser(c.Request.Context(), u); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusCreated, "User created successfully", u)
}

func (h *Handler) UpdateUserRole(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req struct {
		Role string `json:"role" binding:"required,oneof=student professor admin"`
	}
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.dir.UpdateUserRole(ctx, id, model.Role(req.Role)); err != nil {
		fail(c, err)
		return
	}
	u, err := h.svc.User(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "Role updated", u)
}

// SetAvailability records a slot override for the user. Only the user or an
// admin may change it.
func (h *Handler) SetAvailability(c *gin.Context) {
	id, err := h.ownUser(c, model.RoleAdmin)
	if err != nil {
		fail(c, err)
		return
	}
	var req availabilityRequest
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	if err := h.svc.SetAvailability(c.Request.Context(), id, req.SlotID, *req.IsAvailable); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "Availability updated", model.Availability{UserID: id, SlotID: req.SlotID, IsAvailable: *req.IsAvailable})
}

func (h *Handler) UserSchedule(c *gin.Context) {
	id, from, to, err := h.scheduleArgs(c)
	if err != nil {
		fail(c, err)
		return
	}
	s, err := h.svc.UserScheduleWithConflicts(c.Request.Context(), id, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

func (h *Handler) UserConflicts(c *gin.Context) {
	id, from, to, err := h.scheduleArgs(c)
	if err != nil {
		fail(c, err)
		return
	}
	conflicts, err := h.svc.FindConflicts(c.Request.Context(), id, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"conflicts": conflicts, "count": len(conflicts)})
}

// UserCalendar exports the schedule as an iCalendar file.
func (h *Handler) UserCalendar(c *gin.Context) {
	id, from, to, err := h.scheduleArgs(c)
	if err != nil {
		fail(c, err)
		return
	}
	entries, err := h.svc.UserSchedule(c.Request.Context(), id, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := calendar.Encode(&buf, entries, h.svc.Location(), h.opts.Now()); err != nil {
		fail(c, apperr.Store(err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="schedule-%d.ics"`, id))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// scheduleArgs resolves the user id and date range of the schedule endpoints.
// Users see their own schedule; professors and admins see anyone's.
func (h *Handler) scheduleArgs(c *gin.Context) (int64, model.Date, model.Date, error) {
	id, err := h.ownUser(c, model.RoleProfessor, model.RoleAdmin)
	if err != nil {
		return 0, model.Date{}, model.Date{}, err
	}
	var q rangeQuery
	if err := h.bindQuery(c, &q); err != nil {
		return 0, model.Date{}, model.Date{}, err
	}
	from, to := request.DateRange(q.StartDate, q.EndDate, h.today())
	if q.EndDate == "" {
		to = from.AddDays(6)
	}
	return id, from, to, nil
}

// ownUser returns the :id path parameter when it names the caller or the
// caller holds one of roles.
func (h *Handler) ownUser(c *gin.Context, roles ...model.Role) (int64, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return 0, err
	}
	p := principal(c.Request.Context())
	if p.UserID != id && !p.HasRole(roles...) {
		return 0, apperr.Forbidden("You can only access your own data")
	}
	return id, nil
}
