package scheduling

import (
	"context"
	"sort"
	"strings"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
)

type NewMeeting struct {
	Title          string
	Description    string
	RoomID         *int64
	SlotID         int64
	Date           model.Date
	OrganizerID    int64
	ParticipantIDs []int64
}

func (n NewMeeting) meeting() model.Meeting {
	return model.Meeting{
		Title:       strings.TrimSpace(n.Title),
		Description: strings.TrimSpace(n.Description),
		RoomID:      n.RoomID,
		SlotID:      n.SlotID,
		Date:        n.Date,
		CreatedBy:   n.OrganizerID,
		Status:      model.StatusScheduled,
	}
}

// CreateMeeting stores the meeting with one pending invitation per participant
// id, exactly as given. The organizer is not added.
//
// Room and slot availability is not checked here: callers run IsRoomAvailable
// first, and two concurrent creates for the same room and slot can both succeed.
func (s *Service) CreateMeeting(ctx context.Context, n NewMeeting) (int64, error) {
	return s.repo.CreateMeeting(ctx, n.meeting(), invitations(n.ParticipantIDs, model.ResponsePending))
}

// ScheduleMeeting stores the meeting with the organizer and every participant
// marked accepted. Duplicate ids collapse to one row each.
func (s *Service) ScheduleMeeting(ctx context.Context, n NewMeeting) (int64, error) {
	ids := dedupe(append(append([]int64{}, n.ParticipantIDs...), n.OrganizerID))
	return s.repo.CreateMeeting(ctx, n.meeting(), invitations(ids, model.ResponseAccepted))
}

// Respond records a user's answer to an invitation. Repeating it leaves a
// single participant row.
func (s *Service) Respond(ctx context.Context, meetingID, userID int64, r model.Response) error {
	if !r.Valid() {
		return apperr.Invalid("response", "response must be one of: accepted, declined, pending")
	}
	return s.repo.UpsertResponse(ctx, model.Participant{MeetingID: meetingID, UserID: userID, Response: r})
}

// CancelMeeting flips the status only; participant rows are kept.
func (s *Service) CancelMeeting(ctx context.Context, meetingID int64) error {
	return s.SetMeetingStatus(ctx, meetingID, model.StatusCancelled)
}

func (s *Service) SetMeetingStatus(ctx context.Context, meetingID int64, status model.MeetingStatus) error {
	if !status.Valid() {
		return apperr.Invalid("status", "status must be one of: scheduled, completed, cancelled")
	}
	return s.repo.SetMeetingStatus(ctx, meetingID, status)
}

func invitations(ids []int64, r model.Response) []model.Participant {
	out := make([]model.Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Participant{UserID: id, Response: r})
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
