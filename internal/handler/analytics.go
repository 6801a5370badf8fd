package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/request"
)

// MeetingAnalytics defaults to the last 30 days ending today.
func (h *Handler) MeetingAnalytics(c *gin.Context) {
	var q rangeQuery
	if err := h.bindQuery(c, &q); err != nil {
		fail(c, err)
		return
	}
	today := h.today()
	from, to := today.AddDays(-30), today
	if q.StartDate != "" {
		from = request.ParseDate(q.StartDate)
	}
	if q.EndDate != "" {
		to = request.ParseDate(q.EndDate)
	}
	a, err := h.svc.MeetingAnalytics(c.Request.Context(), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

func (h *Handler) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"service": "meeting-scheduler-api", "time": h.opts.Now().UTC()})
}

func (h *Handler) HealthDB(c *gin.Context) {
	if err := h.dir.Ping(c.Request.Context()); err != nil {
		fail(c, apperr.Unavailable(err))
		return
	}
	ok(c, http.StatusOK, gin.H{"database": "ok"})
}
