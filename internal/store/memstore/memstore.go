// Package memstore is an in-memory implementation of the scheduling repository
// and the account directory, used by tests in place of Postgres.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/search"
)

type pkey struct{ meeting, user int64 }

type akey struct{ user, slot int64 }

type Store struct {
	mu           sync.Mutex
	seq          int64
	users        map[int64]model.User
	rooms        map[int64]model.Room
	slots        map[int64]model.TimeSlot
	meetings     map[int64]model.Meeting
	participants map[pkey]model.Participant
	availability map[akey]bool
	tokens       map[string]model.RefreshToken

	// Err, when set, is returned by every call.
	Err error
}

func New() *Store {
	return &Store{
		users:        map[int64]model.User{},
		rooms:        map[int64]model.Room{},
		slots:        map[int64]model.TimeSlot{},
		meetings:     map[int64]model.Meeting{},
		participants: map[pkey]model.Participant{},
		availability: map[akey]bool{},
		tokens:       map[string]model.RefreshToken{},
	}
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Ping(context.Context) error { return s.Err }

// ----- users -----

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperr.Conflict("email already registered", nil)
		}
	}
	u.ID = s.next()
	u.CreatedAt = time.Now()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return &u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (s *Store) UpdateUserRole(_ context.Context, id int64, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperr.NotFound("user")
	}
	u.Role = role
	s.users[id] = u
	return nil
}

// ----- reference data -----

func (s *Store) CreateRoom(_ context.Context, r *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rooms {
		if existing.Name == r.Name {
			return apperr.Conflict("room name already exists", nil)
		}
	}
	r.ID = s.next()
	s.rooms[r.ID] = *r
	return nil
}

func (s *Store) CreateTimeSlot(_ context.Context, sl *model.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl.ID = s.next()
	s.slots[sl.ID] = *sl
	return nil
}

func (s *Store) ActiveRooms(context.Context) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []model.Room{}
	for _, r := range s.rooms {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) TimeSlots(context.Context) ([]model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.TimeSlot, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, sl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) TimeSlot(_ context.Context, id int64) (*model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return nil, apperr.NotFound("time slot")
	}
	return &sl, nil
}

// ----- availability -----

func (s *Store) Bookings(_ context.Context, date model.Date, roomID *int64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Booking
	for _, m := range s.meetings {
		if m.Status == model.StatusCancelled || !m.Date.Equal(date) {
			continue
		}
		if roomID != nil && (m.RoomID == nil || *m.RoomID != *roomID) {
			continue
		}
		if b, ok := s.booking(m); ok {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) AcceptedBookings(_ context.Context, userID int64, from, to model.Date, statuses ...model.MeetingStatus) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Booking
	for _, m := range s.meetings {
		if !inRange(m.Date, from, to) || !hasStatus(m.Status, statuses) {
			continue
		}
		p, ok := s.participants[pkey{m.ID, userID}]
		if !ok || p.Response != model.ResponseAccepted {
			continue
		}
		if b, ok := s.booking(m); ok {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) UnavailableSlotIDs(_ context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for k, available := range s.availability {
		if k.user == userID && !available {
			out = append(out, k.slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) SetAvailability(_ context.Context, a model.Availability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[a.UserID]; !ok {
		return apperr.NotFound("user")
	}
	if _, ok := s.slots[a.SlotID]; !ok {
		return apperr.NotFound("time slot")
	}
	s.availability[akey{a.UserID, a.SlotID}] = a.IsAvailable
	return nil
}

// ----- meetings -----

// CreateMeeting validates every row before storing any of them, so a failure
// leaves nothing behind.
func (s *Store) CreateMeeting(_ context.Context, m model.Meeting, participants []model.Participant) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	if _, ok := s.users[m.CreatedBy]; !ok {
		return 0, apperr.NotFound("user")
	}
	if _, ok := s.slots[m.SlotID]; !ok {
		return 0, apperr.NotFound("time slot")
	}
	if m.RoomID != nil {
		if _, ok := s.rooms[*m.RoomID]; !ok {
			return 0, apperr.NotFound("room")
		}
	}
	seen := map[int64]bool{}
	for _, p := range participants {
		if _, ok := s.users[p.UserID]; !ok {
			return 0, apperr.NotFound("user")
		}
		if seen[p.UserID] {
			return 0, apperr.Conflict("duplicate participant", nil)
		}
		seen[p.UserID] = true
	}

	now := time.Now()
	m.ID = s.next()
	m.CreatedAt = now
	s.meetings[m.ID] = m
	for _, p := range participants {
		p.MeetingID = m.ID
		p.UpdatedAt = now
		s.participants[pkey{m.ID, p.UserID}] = p
	}
	return m.ID, nil
}

func (s *Store) UpsertResponse(_ context.Context, p model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.meetings[p.MeetingID]; !ok {
		return apperr.NotFound("meeting")
	}
	if _, ok := s.users[p.UserID]; !ok {
		return apperr.NotFound("user")
	}
	p.UpdatedAt = time.Now()
	s.participants[pkey{p.MeetingID, p.UserID}] = p
	return nil
}

func (s *Store) SetMeetingStatus(_ context.Context, id int64, status model.MeetingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return apperr.NotFound("meeting")
	}
	m.Status = status
	s.meetings[id] = m
	return nil
}

// ParticipantRows counts stored participant rows for a meeting.
func (s *Store) ParticipantRows(meetingID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.participants {
		if k.meeting == meetingID {
			n++
		}
	}
	return n
}

func (s *Store) MeetingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meetings)
}

// ----- aggregates -----

func (s *Store) UserSchedule(_ context.Context, userID int64, from, to model.Date) ([]model.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.ScheduleEntry
	for _, m := range s.meetings {
		if m.Status == model.StatusCancelled || !inRange(m.Date, from, to) {
			continue
		}
		p, ok := s.participants[pkey{m.ID, userID}]
		if !ok || p.Response != model.ResponseAccepted {
			continue
		}
		if e, ok := s.entry(m); ok {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (s *Store) UpcomingMeetings(_ context.Context, userID *int64, from model.Date, limit int) ([]model.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []model.ScheduleEntry{}
	for _, m := range s.meetings {
		if m.Status != model.StatusScheduled || m.Date.Before(from.Time) {
			continue
		}
		if userID != nil && m.CreatedBy != *userID {
			p, ok := s.participants[pkey{m.ID, *userID}]
			if !ok || p.Response != model.ResponseAccepted {
				continue
			}
		}
		if e, ok := s.entry(m); ok {
			out = append(out, e)
		}
	}
	sortEntries(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MeetingStats(_ context.Context, from, to model.Date) ([]model.MeetingStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.MeetingStat
	for _, m := range s.meetings {
		if !inRange(m.Date, from, to) {
			continue
		}
		st := model.MeetingStat{
			MeetingID:     m.ID,
			Status:        m.Status,
			OrganizerID:   m.CreatedBy,
			OrganizerName: s.users[m.CreatedBy].Name,
		}
		if sl, ok := s.slots[m.SlotID]; ok {
			d := int(sl.EndTime - sl.StartTime)
			st.DurationMinutes = &d
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeetingID < out[j].MeetingID })
	return out, nil
}

func (s *Store) MeetingDetails(_ context.Context, id int64) (*model.MeetingDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	m, ok := s.meetings[id]
	if !ok {
		return nil, apperr.NotFound("meeting")
	}
	d := s.details(m)
	return &d, nil
}

func (s *Store) SearchMeetings(_ context.Context, preds []search.Predicate) ([]model.MeetingDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []model.MeetingDetails{}
	for _, m := range s.meetings {
		d := s.details(m)
		if search.MatchAll(preds, &d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date.Time)
		}
		if as, bs := startOf(a.Slot), startOf(b.Slot); as != bs {
			return as < bs
		}
		return a.ID < b.ID
	})
	return out, nil
}

// ----- refresh tokens -----

func (s *Store) CreateRefreshToken(_ context.Context, userID int64, tokenHash string, expiresAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.tokens[id] = model.RefreshToken{ID: id, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return id, nil
}

func (s *Store) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.tokens {
		if rt.TokenHash == tokenHash {
			return &rt, nil
		}
	}
	return nil, apperr.NotFound("refresh token")
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID, newID string, userID int64, newHash string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.tokens[oldID]
	if !ok {
		return apperr.NotFound("refresh token")
	}
	old.Revoked = true
	old.ReplacedBy = &newID
	s.tokens[oldID] = old
	s.tokens[newID] = model.RefreshToken{ID: newID, UserID: userID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: time.Now()}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rt := range s.tokens {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			s.tokens[id] = rt
		}
	}
	return nil
}

// ----- helpers (mu held) -----

func (s *Store) booking(m model.Meeting) (model.Booking, bool) {
	sl, ok := s.slots[m.SlotID]
	if !ok {
		return model.Booking{}, false
	}
	b := model.Booking{
		MeetingID: m.ID,
		Title:     m.Title,
		RoomID:    m.RoomID,
		SlotID:    m.SlotID,
		Date:      m.Date,
		StartTime: sl.StartTime,
		EndTime:   sl.EndTime,
		Status:    m.Status,
	}
	if m.RoomID != nil {
		if r, ok := s.rooms[*m.RoomID]; ok {
			name := r.Name
			b.RoomName = &name
		}
	}
	return b, true
}

func (s *Store) entry(m model.Meeting) (model.ScheduleEntry, bool) {
	sl, ok := s.slots[m.SlotID]
	if !ok {
		return model.ScheduleEntry{}, false
	}
	e := model.ScheduleEntry{
		MeetingID:     m.ID,
		Title:         m.Title,
		Description:   m.Description,
		Date:          m.Date,
		Status:        m.Status,
		StartTime:     sl.StartTime,
		EndTime:       sl.EndTime,
		DayOfWeek:     sl.DayOfWeek,
		OrganizerName: s.users[m.CreatedBy].Name,
	}
	if m.RoomID != nil {
		if r, ok := s.rooms[*m.RoomID]; ok {
			name := r.Name
			e.RoomName = &name
		}
	}
	for k, p := range s.participants {
		if k.meeting == m.ID && p.Response == model.ResponseAccepted {
			e.ParticipantCount++
		}
	}
	return e, true
}

func (s *Store) details(m model.Meeting) model.MeetingDetails {
	org := s.users[m.CreatedBy]
	d := model.MeetingDetails{
		Meeting:      m,
		Organizer:    model.Person{ID: org.ID, Name: org.Name, Email: org.Email, Role: org.Role},
		Participants: []model.ParticipantDetail{},
	}
	if m.RoomID != nil {
		if r, ok := s.rooms[*m.RoomID]; ok {
			d.Room = &model.RoomRef{ID: r.ID, Name: r.Name, Capacity: r.Capacity}
		}
	}
	if sl, ok := s.slots[m.SlotID]; ok {
		d.Slot = &sl
	}
	for k, p := range s.participants {
		if k.meeting != m.ID {
			continue
		}
		u := s.users[k.user]
		d.Participants = append(d.Participants, model.ParticipantDetail{
			UserID:       u.ID,
			Name:         u.Name,
			Email:        u.Email,
			Response:     p.Response,
			ResponseDate: p.UpdatedAt,
		})
	}
	sort.Slice(d.Participants, func(i, j int) bool { return d.Participants[i].UserID < d.Participants[j].UserID })
	return d
}

func inRange(d, from, to model.Date) bool {
	return !d.Before(from.Time) && !d.After(to.Time)
}

func hasStatus(st model.MeetingStatus, statuses []model.MeetingStatus) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func startOf(sl *model.TimeSlot) model.Clock {
	if sl == nil {
		return 0
	}
	return sl.StartTime
}

func sortBookings(bs []model.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].Date.Equal(bs[j].Date) {
			return bs[i].Date.Before(bs[j].Date.Time)
		}
		if bs[i].StartTime != bs[j].StartTime {
			return bs[i].StartTime < bs[j].StartTime
		}
		return bs[i].MeetingID < bs[j].MeetingID
	})
}

func sortEntries(es []model.ScheduleEntry) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].Date.Equal(es[j].Date) {
			return es[i].Date.Before(es[j].Date.Time)
		}
		if es[i].StartTime != es[j].StartTime {
			return es[i].StartTime < es[j].StartTime
		}
		return es[i].MeetingID < es[j].MeetingID
	})
}
