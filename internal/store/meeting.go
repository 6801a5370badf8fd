package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/search"
)

// CreateMeeting inserts the meeting row and every participant row in one
// transaction; a failure on any row leaves nothing behind.
func (s *Store) CreateMeeting(ctx context.Context, m model.Meeting, participants []model.Participant) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO meetings (title, description, room_id, slot_id, meeting_date, created_by, status)
			 VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING meeting_id`,
			m.Title, m.Description, m.RoomID, m.SlotID, m.Date.Time, m.CreatedBy, string(m.Status),
		).Scan(&id)
		if err != nil {
			return err
		}

		for _, p := range participants {
			_, err = tx.Exec(ctx,
				`INSERT INTO meeting_participants (meeting_id, user_id, response) VALUES ($1,$2,$3)`,
				id, p.UserID, string(p.Response),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) UpsertResponse(ctx context.Context, p model.Participant) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		_, err := c.Exec(ctx,
			`INSERT INTO meeting_participants (meeting_id, user_id, response) VALUES ($1,$2,$3)
			 ON CONFLICT (meeting_id, user_id)
			 DO UPDATE SET response = EXCLUDED.response, updated_at = NOW()`,
			p.MeetingID, p.UserID, string(p.Response),
		)
		return err
	})
}

func (s *Store) SetMeetingStatus(ctx context.Context, id int64, status model.MeetingStatus) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		tag, err := c.Exec(ctx, `UPDATE meetings SET status = $1 WHERE meeting_id = $2`, string(status), id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("meeting")
		}
		return nil
	})
}

const detailsSelect = `
SELECT m.meeting_id, m.title, m.description, m.room_id, m.slot_id, m.meeting_date,
       m.created_by, m.status, m.created_at,
       u.user_id, u.name, u.email, u.role,
       r.room_id, r.name, r.capacity,
       ts.slot_id, ts.start_time, ts.end_time, ts.day_of_week, ts.is_recurring
FROM meetings m
JOIN users u ON u.user_id = m.created_by
LEFT JOIN meeting_rooms r ON r.room_id = m.room_id
LEFT JOIN time_slots ts ON ts.slot_id = m.slot_id`

func (s *Store) MeetingDetails(ctx context.Context, id int64) (*model.MeetingDetails, error) {
	out, err := s.details(ctx, detailsSelect+` WHERE m.meeting_id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.NotFound("meeting")
	}
	return &out[0], nil
}

// SearchMeetings ANDs the predicates into one parameterized WHERE clause.
func (s *Store) SearchMeetings(ctx context.Context, preds []search.Predicate) ([]model.MeetingDetails, error) {
	where, args := search.Where(preds, 0)
	return s.details(ctx, detailsSelect+` `+where+`
		ORDER BY m.meeting_date, ts.start_time, m.meeting_id`, args...)
}

func (s *Store) details(ctx context.Context, q string, args ...any) ([]model.MeetingDetails, error) {
	out := []model.MeetingDetails{}
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		for rows.Next() {
			d, err := scanDetails(rows)
			if err != nil {
				rows.Close()
				return err
			}
			out = append(out, d)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		return loadParticipants(ctx, c, out)
	})
	return out, err
}

func scanDetails(row pgx.Row) (model.MeetingDetails, error) {
	var (
		d          model.MeetingDetails
		date       time.Time
		roomID     *int64
		roomName   *string
		roomCap    *int
		slotID     *int64
		start, end pgtype.Time
		day        *string
		recurring  *bool
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.RoomID, &d.SlotID, &date,
		&d.CreatedBy, &d.Status, &d.CreatedAt,
		&d.Organizer.ID, &d.Organizer.Name, &d.Organizer.Email, &d.Organizer.Role,
		&roomID, &roomName, &roomCap,
		&slotID, &start, &end, &day, &recurring,
	)
	if err != nil {
		return d, err
	}
	d.Date = model.Date{Time: date}
	if roomID != nil {
		d.Room = &model.RoomRef{ID: *roomID, Name: *roomName, Capacity: *roomCap}
	}
	if slotID != nil {
		d.Slot = &model.TimeSlot{
			ID:          *slotID,
			StartTime:   clockOf(start),
			EndTime:     clockOf(end),
			DayOfWeek:   *day,
			IsRecurring: *recurring,
		}
	}
	d.Participants = []model.ParticipantDetail{}
	return d, nil
}

func loadParticipants(ctx context.Context, c *pgxpool.Conn, meetings []model.MeetingDetails) error {
	if len(meetings) == 0 {
		return nil
	}
	ids := make([]int64, len(meetings))
	index := make(map[int64]int, len(meetings))
	for i, m := range meetings {
		ids[i] = m.ID
		index[m.ID] = i
	}

	rows, err := c.Query(ctx,
		`SELECT mp.meeting_id, u.user_id, u.name, u.email, mp.response, mp.updated_at
		 FROM meeting_participants mp
		 JOIN users u ON u.user_id = mp.user_id
		 WHERE mp.meeting_id = ANY($1)
		 ORDER BY mp.meeting_id, u.user_id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			meetingID int64
			p         model.ParticipantDetail
		)
		if err := rows.Scan(&meetingID, &p.UserID, &p.Name, &p.Email, &p.Response, &p.ResponseDate); err != nil {
			return err
		}
		i := index[meetingID]
		meetings[i].Participants = append(meetings[i].Participants, p)
	}
	return rows.Err()
}
