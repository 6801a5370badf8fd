// Package scheduling holds the rules that decide whether a room, slot or user is
// free, detect conflicting meetings, create meetings atomically and aggregate
// schedules and statistics. Persistence sits behind Repository.
package scheduling

import (
	"context"
	"time"

	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/search"
)

// Repository is the persistence the core needs. Implementations return
// apperr errors (NotFound for unknown ids).
type Repository interface {
	UserByID(ctx context.Context, id int64) (*model.User, error)

	ActiveRooms(ctx context.Context) ([]model.Room, error)
	TimeSlots(ctx context.Context) ([]model.TimeSlot, error)
	TimeSlot(ctx context.Context, id int64) (*model.TimeSlot, error)

	// Bookings returns non-cancelled meetings on date, restricted to one room when roomID is set.
	Bookings(ctx context.Context, date model.Date, roomID *int64) ([]model.Booking, error)
	// AcceptedBookings returns meetings in [from, to] the user accepted, whose
	// status is one of statuses.
	AcceptedBookings(ctx context.Context, userID int64, from, to model.Date, statuses ...model.MeetingStatus) ([]model.Booking, error)
	UnavailableSlotIDs(ctx context.Context, userID int64) ([]int64, error)
	SetAvailability(ctx context.Context, a model.Availability) error

	// CreateMeeting inserts the meeting and its participants in one transaction.
	CreateMeeting(ctx context.Context, m model.Meeting, participants []model.Participant) (int64, error)
	UpsertResponse(ctx context.Context, p model.Participant) error
	SetMeetingStatus(ctx context.Context, meetingID int64, status model.MeetingStatus) error

	UserSchedule(ctx context.Context, userID int64, from, to model.Date) ([]model.ScheduleEntry, error)
	UpcomingMeetings(ctx context.Context, userID *int64, from model.Date, limit int) ([]model.ScheduleEntry, error)
	MeetingStats(ctx context.Context, from, to model.Date) ([]model.MeetingStat, error)
	MeetingDetails(ctx context.Context, id int64) (*model.MeetingDetails, error)
	SearchMeetings(ctx context.Context, preds []search.Predicate) ([]model.MeetingDetails, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
	loc  *time.Location
}

type Option func(*Service)

// WithClock overrides the time source used to decide what "today" is.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func New(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now, loc: time.UTC}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Location() *time.Location { return s.loc }

// Today is the current date in the service location.
func (s *Service) Today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}
