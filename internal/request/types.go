package request

import (
	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/scheduling"
	"meeting-scheduler-api/internal/search"
)

// Meeting is the body of both meeting-creation entry points. Participants
// are optional.
type Meeting struct {
	Title          string  `json:"title" binding:"required"`
	Description    string  `json:"description" binding:"max=1000"`
	RoomID         *int64  `json:"room_id" binding:"omitempty,gt=0"`
	SlotID         int64   `json:"slot_id" binding:"required,gt=0"`
	MeetingDate    string  `json:"meeting_date" binding:"required,datetime=2006-01-02"`
	ParticipantIDs []int64 `json:"participant_ids" binding:"omitempty,unique,dive,gt=0"`
}

func (r *Meeting) Check(today model.Date) []apperr.FieldError {
	return append(TextLength("title", r.Title, 3, 200), NotPast("meeting_date", r.MeetingDate, today)...)
}

func (r *Meeting) Build(organizer int64) scheduling.NewMeeting {
	return scheduling.NewMeeting{
		Title:          r.Title,
		Description:    r.Description,
		RoomID:         r.RoomID,
		SlotID:         r.SlotID,
		Date:           ParseDate(r.MeetingDate),
		OrganizerID:    organizer,
		ParticipantIDs: r.ParticipantIDs,
	}
}

// Interval is a wall-clock range on one date.
type Interval struct {
	Date      string `json:"date" form:"date" binding:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" form:"start_time" binding:"required,datetime=15:04"`
	EndTime   string `json:"end_time" form:"end_time" binding:"required,datetime=15:04"`
}

func (q *Interval) Check(model.Date) []apperr.FieldError {
	return ClockOrder(q.StartTime, q.EndTime)
}

func (q *Interval) Values() (model.Date, model.Clock, model.Clock) {
	return ParseDate(q.Date), ParseClock(q.StartTime), ParseClock(q.EndTime)
}

type UserDay struct {
	UserID int64  `json:"user_id" form:"user_id" binding:"required,gt=0"`
	Date   string `json:"date" form:"date" binding:"required,datetime=2006-01-02"`
}

// Respond answers an invitation. UserID is only honoured for admins.
type Respond struct {
	Response string `json:"response" binding:"required,oneof=accepted declined pending"`
	UserID   *int64 `json:"user_id" binding:"omitempty,gt=0"`
}

type Search struct {
	TitleKeyword  string `json:"title_keyword" binding:"max=200"`
	StartDate     string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate       string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	ParticipantID *int64 `json:"participant_id" binding:"omitempty,gt=0"`
	RoomID        *int64 `json:"room_id" binding:"omitempty,gt=0"`
	Status        string `json:"status" binding:"omitempty,oneof=scheduled completed cancelled"`
	OrganizerID   *int64 `json:"organizer_id" binding:"omitempty,gt=0"`
}

func (r *Search) Filters() search.Filters {
	f := search.Filters{
		TitleKeyword:  r.TitleKeyword,
		ParticipantID: r.ParticipantID,
		RoomID:        r.RoomID,
		OrganizerID:   r.OrganizerID,
	}
	if r.StartDate != "" {
		d := ParseDate(r.StartDate)
		f.From = &d
	}
	if r.EndDate != "" {
		d := ParseDate(r.EndDate)
		f.To = &d
	}
	if r.Status != "" {
		s := model.MeetingStatus(r.Status)
		f.Status = &s
	}
	return f
}
