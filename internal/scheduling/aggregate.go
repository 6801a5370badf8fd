package scheduling

import (
	"context"
	"sort"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/search"
)

const (
	defaultUpcomingLimit = 10
	maxUpcomingLimit     = 100
	topOrganizers        = 5
)

// UserSchedule lists the non-cancelled meetings the user accepted in
// [from, to], ordered by date and start time.
func (s *Service) UserSchedule(ctx context.Context, userID int64, from, to model.Date) ([]model.ScheduleEntry, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.repo.UserSchedule(ctx, userID, from, to)
}

func (s *Service) UserScheduleWithConflicts(ctx context.Context, userID int64, from, to model.Date) (*model.UserSchedule, error) {
	entries, err := s.UserSchedule(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.FindConflicts(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.ScheduleEntry{}
	}
	return &model.UserSchedule{Schedule: entries, Conflicts: conflicts}, nil
}

// UpcomingMeetings lists scheduled meetings from today on. With a user, only
// meetings the user accepted or organizes are included.
func (s *Service) UpcomingMeetings(ctx context.Context, userID *int64, limit int) ([]model.ScheduleEntry, error) {
	if limit <= 0 {
		limit = defaultUpcomingLimit
	}
	if limit > maxUpcomingLimit {
		limit = maxUpcomingLimit
	}
	return s.repo.UpcomingMeetings(ctx, userID, s.Today(), limit)
}

func (s *Service) MeetingAnalytics(ctx context.Context, from, to model.Date) (*model.Analytics, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	stats, err := s.repo.MeetingStats(ctx, from, to)
	if err != nil {
		return nil, err
	}
	counts, top := Summarize(stats)
	return &model.Analytics{
		Period:        model.Period{Start: from, End: to},
		Counts:        counts,
		TopOrganizers: top,
	}, nil
}

// Summarize counts meetings by status and ranks the five most active
// organizers. Average duration only covers meetings with known slot times and
// is nil when there are none.
func Summarize(stats []model.MeetingStat) (model.StatusCounts, []model.OrganizerStat) {
	var counts model.StatusCounts
	type acc struct {
		stat    model.OrganizerStat
		minutes int
		timed   int
	}
	byOrganizer := map[int64]*acc{}

	for _, st := range stats {
		counts.Total++
		switch st.Status {
		case model.StatusCompleted:
			counts.Completed++
		case model.StatusCancelled:
			counts.Cancelled++
		case model.StatusScheduled:
			counts.Scheduled++
		}

		a, ok := byOrganizer[st.OrganizerID]
		if !ok {
			a = &acc{stat: model.OrganizerStat{OrganizerID: st.OrganizerID, Organizer: st.OrganizerName}}
			byOrganizer[st.OrganizerID] = a
		}
		a.stat.MeetingsCreated++
		if st.DurationMinutes != nil {
			a.minutes += *st.DurationMinutes
			a.timed++
		}
	}

	top := make([]model.OrganizerStat, 0, len(byOrganizer))
	for _, a := range byOrganizer {
		if a.timed > 0 {
			avg := float64(a.minutes) / float64(a.timed)
			a.stat.AvgDurationMinutes = &avg
		}
		top = append(top, a.stat)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].MeetingsCreated != top[j].MeetingsCreated {
			return top[i].MeetingsCreated > top[j].MeetingsCreated
		}
		return top[i].OrganizerID < top[j].OrganizerID
	})
	if len(top) > topOrganizers {
		top = top[:topOrganizers]
	}
	return counts, top
}

func (s *Service) MeetingDetails(ctx context.Context, id int64) (*model.MeetingDetails, error) {
	return s.repo.MeetingDetails(ctx, id)
}

// SearchMeetings applies every set filter with AND. Without filters it returns
// all meetings; paging is up to the caller.
func (s *Service) SearchMeetings(ctx context.Context, f search.Filters) ([]model.MeetingDetails, error) {
	if f.From != nil && f.To != nil {
		if err := checkRange(*f.From, *f.To); err != nil {
			return nil, err
		}
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Invalid("status", "status must be one of: scheduled, completed, cancelled")
	}
	out, err := s.repo.SearchMeetings(ctx, f.Predicates())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.MeetingDetails{}
	}
	return out, nil
}

func (s *Service) User(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.UserByID(ctx, id)
}

func (s *Service) Rooms(ctx context.Context) ([]model.Room, error) {
	return s.repo.ActiveRooms(ctx)
}

func (s *Service) TimeSlots(ctx context.Context) ([]model.TimeSlot, error) {
	return s.repo.TimeSlots(ctx)
}

func (s *Service) TimeSlot(ctx context.Context, id int64) (*model.TimeSlot, error) {
	return s.repo.TimeSlot(ctx, id)
}

func checkRange(from, to model.Date) error {
	if to.Before(from.Time) {
		return apperr.Invalid("end_date", "end_date must not be before start_date")
	}
	return nil
}
