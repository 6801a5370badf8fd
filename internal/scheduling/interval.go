package scheduling

import "meeting-scheduler-api/internal/model"

// Interval is a half-open wall-clock range [Start, End).
type Interval struct {
	Start, End model.Clock
}

// Overlaps is the one overlap test used everywhere. Back-to-back intervals
// (a.End == b.Start) do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

func bookingInterval(b model.Booking) Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}
