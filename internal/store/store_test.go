package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/search"
)

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
		msg  string
	}{
		{"duplicate email", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"}, apperr.KindConflict, "email already registered"},
		{"duplicate participant", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "meeting_participants_pkey"}, apperr.KindConflict, "duplicate participant"},
		{"missing user", &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: "meeting_participants_user_id_fkey"}, apperr.KindNotFound, "user not found"},
		{"missing organizer", &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: "meetings_created_by_fkey"}, apperr.KindNotFound, "user not found"},
		{"missing meeting", &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: "meeting_participants_meeting_id_fkey"}, apperr.KindNotFound, "meeting not found"},
		{"missing slot", &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: "meetings_slot_id_fkey"}, apperr.KindNotFound, "time slot not found"},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation}), apperr.KindConflict, "record already exists"},
		{"timeout", context.DeadlineExceeded, apperr.KindUnavailable, "database busy, try again"},
		{"other", errors.New("connection reset"), apperr.KindStore, "internal server error"},
		{"already mapped", apperr.NotFound("room"), apperr.KindNotFound, "room not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr(tt.err)
			if apperr.KindOf(got) != tt.kind {
				t.Errorf("kind = %v, want %v", apperr.KindOf(got), tt.kind)
			}
			if apperr.Public(got) != tt.msg {
				t.Errorf("message = %q, want %q", apperr.Public(got), tt.msg)
			}
		})
	}
	if mapErr(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestClockRoundTrip(t *testing.T) {
	for _, c := range []model.Clock{0, model.NewClock(9, 30), model.NewClock(23, 59)} {
		if got := clockOf(pgTime(c)); got != c {
			t.Errorf("round trip %s: got %s", c, got)
		}
	}
}

func setup(t *testing.T) *Store {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)
	st := New(pool, 5*time.Second)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func createUser(t *testing.T, st *Store, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Name:  "Test User",
		Email: fmt.Sprintf("test-%s@uni.edu", uuid.New().String()[:8]),
		Role:  role,
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createSlot(t *testing.T, st *Store, start, end model.Clock) *model.TimeSlot {
	t.Helper()
	sl := &model.TimeSlot{StartTime: start, EndTime: end, DayOfWeek: "Monday", IsRecurring: true}
	if err := st.CreateTimeSlot(context.Background(), sl); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return sl
}

func TestUsers(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u := createUser(t, st, model.RoleStudent)

	t.Run("lookup", func(t *testing.T) {
		got, err := st.UserByEmail(ctx, u.Email)
		if err != nil {
			t.Fatalf("by email: %v", err)
		}
		if got.ID != u.ID || got.Role != model.RoleStudent {
			t.Errorf("unexpected user: %+v", got)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := st.CreateUser(ctx, &model.User{Name: "Again", Email: u.Email, Role: model.RoleStudent})
		if !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("role change", func(t *testing.T) {
		if err := st.UpdateUserRole(ctx, u.ID, model.RoleProfessor); err != nil {
			t.Fatalf("update role: %v", err)
		}
		got, _ := st.UserByID(ctx, u.ID)
		if got.Role != model.RoleProfessor {
			t.Errorf("role not updated: %s", got.Role)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := st.UserByID(ctx, -1)
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestCreateMeetingRollsBack(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	org := createUser(t, st, model.RoleProfessor)
	slot := createSlot(t, st, model.NewClock(9, 0), model.NewClock(10, 0))
	title := "rollback-" + uuid.New().String()[:8]

	_, err := st.CreateMeeting(ctx, model.Meeting{
		Title: title, SlotID: slot.ID, Date: model.NewDate(2030, time.January, 7),
		CreatedBy: org.ID, Status: model.StatusScheduled,
	}, []model.Participant{
		{UserID: org.ID, Response: model.ResponseAccepted},
		{UserID: -1, Response: model.ResponseAccepted},
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	found, err := st.SearchMeetings(ctx, []search.Predicate{search.TitleContains(title)})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("meeting row survived a failed create: %+v", found)
	}
}

func TestMeetingLifecycle(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	org := createUser(t, st, model.RoleProfessor)
	guest := createUser(t, st, model.RoleStudent)
	slot := createSlot(t, st, model.NewClock(14, 0), model.NewClock(15, 0))
	room := &model.Room{Name: "Room " + uuid.New().String()[:8], Capacity: 8, IsActive: true}
	if err := st.CreateRoom(ctx, room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	date := model.NewDate(2030, time.January, 8)

	id, err := st.CreateMeeting(ctx, model.Meeting{
		Title: "Lifecycle", RoomID: &room.ID, SlotID: slot.ID, Date: date,
		CreatedBy: org.ID, Status: model.StatusScheduled,
	}, []model.Participant{{UserID: guest.ID, Response: model.ResponsePending}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("details", func(t *testing.T) {
		d, err := st.MeetingDetails(ctx, id)
		if err != nil {
			t.Fatalf("details: %v", err)
		}
		if d.Organizer.ID != org.ID || d.Room == nil || d.Room.ID != room.ID {
			t.Errorf("unexpected details: %+v", d)
		}
		if d.Slot == nil || d.Slot.StartTime != model.NewClock(14, 0) {
			t.Errorf("slot not resolved: %+v", d.Slot)
		}
		if !d.Date.Equal(date) {
			t.Errorf("date = %s, want %s", d.Date, date)
		}
		if len(d.Participants) != 1 || d.Participants[0].Response != model.ResponsePending {
			t.Errorf("unexpected participants: %+v", d.Participants)
		}
	})

	t.Run("bookings", func(t *testing.T) {
		bs, err := st.Bookings(ctx, date, &room.ID)
		if err != nil {
			t.Fatalf("bookings: %v", err)
		}
		if len(bs) != 1 || bs[0].MeetingID != id || bs[0].EndTime != model.NewClock(15, 0) {
			t.Errorf("unexpected bookings: %+v", bs)
		}
	})

	t.Run("respond twice", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := st.UpsertResponse(ctx, model.Participant{MeetingID: id, UserID: guest.ID, Response: model.ResponseAccepted}); err != nil {
				t.Fatalf("respond: %v", err)
			}
		}
		d, _ := st.MeetingDetails(ctx, id)
		if len(d.Participants) != 1 || d.Participants[0].Response != model.ResponseAccepted {
			t.Errorf("unexpected participants: %+v", d.Participants)
		}
		bs, err := st.AcceptedBookings(ctx, guest.ID, date, date, model.StatusScheduled)
		if err != nil {
			t.Fatalf("accepted: %v", err)
		}
		if len(bs) != 1 {
			t.Errorf("expected 1 accepted booking, got %d", len(bs))
		}
	})

	t.Run("cancel", func(t *testing.T) {
		if err := st.SetMeetingStatus(ctx, id, model.StatusCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		bs, _ := st.Bookings(ctx, date, &room.ID)
		if len(bs) != 0 {
			t.Errorf("cancelled meeting still booked: %+v", bs)
		}
		err := st.SetMeetingStatus(ctx, -1, model.StatusCancelled)
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestAvailabilityOverride(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u := createUser(t, st, model.RoleStudent)
	slot := createSlot(t, st, model.NewClock(16, 0), model.NewClock(17, 0))

	if err := st.SetAvailability(ctx, model.Availability{UserID: u.ID, SlotID: slot.ID}); err != nil {
		t.Fatalf("block: %v", err)
	}
	ids, err := st.UnavailableSlotIDs(ctx, u.ID)
	if err != nil {
		t.Fatalf("unavailable: %v", err)
	}
	if len(ids) != 1 || ids[0] != slot.ID {
		t.Errorf("unexpected ids: %v", ids)
	}

	if err := st.SetAvailability(ctx, model.Availability{UserID: u.ID, SlotID: slot.ID, IsAvailable: true}); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	ids, _ = st.UnavailableSlotIDs(ctx, u.ID)
	if len(ids) != 0 {
		t.Errorf("expected no blocked slots, got %v", ids)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u := createUser(t, st, model.RoleStudent)
	exp := time.Now().Add(time.Hour)

	oldHash := "hash-" + uuid.New().String()
	oldID, err := st.CreateRefreshToken(ctx, u.ID, oldHash, exp)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	newID, newHash := uuid.New().String(), "hash-"+uuid.New().String()
	if err := st.RotateRefreshToken(ctx, oldID, newID, u.ID, newHash, exp); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	old, err := st.GetRefreshTokenByHash(ctx, oldHash)
	if err != nil {
		t.Fatalf("get old: %v", err)
	}
	if !old.Revoked || old.ReplacedBy == nil || *old.ReplacedBy != newID {
		t.Errorf("old token not rotated: %+v", old)
	}

	if err := st.RevokeAllRefreshTokens(ctx, u.ID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	cur, _ := st.GetRefreshTokenByHash(ctx, newHash)
	if !cur.Revoked {
		t.Error("expected new token revoked after logout")
	}
}
