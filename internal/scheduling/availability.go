package scheduling

import (
	"context"
	"sort"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
)

// IsRoomAvailable reports whether no non-cancelled meeting in the room on date
// overlaps [start, end).
func (s *Service) IsRoomAvailable(ctx context.Context, roomID int64, date model.Date, start, end model.Clock) (bool, error) {
	want, err := interval(start, end)
	if err != nil {
		return false, err
	}
	bookings, err := s.repo.Bookings(ctx, date, &roomID)
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if b.Status == model.StatusCancelled {
			continue
		}
		if bookingInterval(b).Overlaps(want) {
			return false, nil
		}
	}
	return true, nil
}

// AvailableRooms lists active rooms that are free for [start, end) on date.
func (s *Service) AvailableRooms(ctx context.Context, date model.Date, start, end model.Clock) ([]model.Room, error) {
	want, err := interval(start, end)
	if err != nil {
		return nil, err
	}
	rooms, err := s.repo.ActiveRooms(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := s.repo.Bookings(ctx, date, nil)
	if err != nil {
		return nil, err
	}

	busy := map[int64]bool{}
	for _, b := range bookings {
		if b.RoomID == nil || b.Status == model.StatusCancelled {
			continue
		}
		if bookingInterval(b).Overlaps(want) {
			busy[*b.RoomID] = true
		}
	}

	out := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		if !busy[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

// AvailableTimeSlots lists the slots a user is free for on date, ordered by
// start time. A slot is excluded when the user accepted a non-cancelled meeting
// in it that day, or has marked it unavailable. Unknown users get no slots.
func (s *Service) AvailableTimeSlots(ctx context.Context, userID int64, date model.Date) ([]model.TimeSlot, error) {
	if _, err := s.repo.UserByID(ctx, userID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return []model.TimeSlot{}, nil
		}
		return nil, err
	}

	slots, err := s.repo.TimeSlots(ctx)
	if err != nil {
		return nil, err
	}
	accepted, err := s.repo.AcceptedBookings(ctx, userID, date, date, model.StatusScheduled, model.StatusCompleted)
	if err != nil {
		return nil, err
	}
	blocked, err := s.repo.UnavailableSlotIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int64]bool, len(accepted)+len(blocked))
	for _, b := range accepted {
		excluded[b.SlotID] = true
	}
	for _, id := range blocked {
		excluded[id] = true
	}

	out := make([]model.TimeSlot, 0, len(slots))
	for _, sl := range slots {
		if !excluded[sl.ID] {
			out = append(out, sl)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// SetAvailability records an explicit allow/blackout override for a slot.
func (s *Service) SetAvailability(ctx context.Context, userID, slotID int64, available bool) error {
	if _, err := s.repo.TimeSlot(ctx, slotID); err != nil {
		return err
	}
	return s.repo.SetAvailability(ctx, model.Availability{UserID: userID, SlotID: slotID, IsAvailable: available})
}

func interval(start, end model.Clock) (Interval, error) {
	if end <= start {
		return Interval{}, apperr.Invalid("end_time", "end_time must be after start_time")
	}
	return Interval{Start: start, End: end}, nil
}
