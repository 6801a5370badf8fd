package scheduling

import (
	"context"
	"sort"

	"meeting-scheduler-api/internal/model"
)

// FindConflicts returns every pair of the user's scheduled, accepted meetings in
// [from, to] that fall on the same date and overlap.
func (s *Service) FindConflicts(ctx context.Context, userID int64, from, to model.Date) ([]model.Conflict, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	bookings, err := s.repo.AcceptedBookings(ctx, userID, from, to, model.StatusScheduled)
	if err != nil {
		return nil, err
	}
	return DetectConflicts(bookings), nil
}

// DetectConflicts compares every unordered pair exactly once, with the lower
// meeting id first. It is quadratic in len(bookings).
func DetectConflicts(bookings []model.Booking) []model.Conflict {
	sorted := make([]model.Booking, len(bookings))
	copy(sorted, bookings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MeetingID < sorted[j].MeetingID })

	out := []model.Conflict{}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			m1, m2 := sorted[i], sorted[j]
			if m1.MeetingID == m2.MeetingID || !m1.Date.Equal(m2.Date) {
				continue
			}
			if bookingInterval(m1).Overlaps(bookingInterval(m2)) {
				out = append(out, model.Conflict{Date: m1.Date, Meeting1: m1, Meeting2: m2})
			}
		}
	}
	return out
}
