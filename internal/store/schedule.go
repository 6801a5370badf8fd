package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"meeting-scheduler-api/internal/model"
)

const scheduleSelect = `
SELECT m.meeting_id, m.title, m.description, m.meeting_date, m.status,
       ts.start_time, ts.end_time, ts.day_of_week, r.name, u.name,
       (SELECT COUNT(*) FROM meeting_participants c
         WHERE c.meeting_id = m.meeting_id AND c.response = 'accepted')
FROM meetings m
JOIN time_slots ts ON ts.slot_id = m.slot_id
JOIN users u ON u.user_id = m.created_by
LEFT JOIN meeting_rooms r ON r.room_id = m.room_id`

func (s *Store) UserSchedule(ctx context.Context, userID int64, from, to model.Date) ([]model.ScheduleEntry, error) {
	return s.schedule(ctx, scheduleSelect+`
		JOIN meeting_participants mp ON mp.meeting_id = m.meeting_id
		WHERE mp.user_id = $1
		  AND mp.response = 'accepted'
		  AND m.status <> 'cancelled'
		  AND m.meeting_date BETWEEN $2 AND $3
		ORDER BY m.meeting_date, ts.start_time, m.meeting_id`,
		userID, from.Time, to.Time)
}

// UpcomingMeetings includes a meeting for userID when the user organizes it or
// accepted it. A nil userID lists everyone's.
func (s *Store) UpcomingMeetings(ctx context.Context, userID *int64, from model.Date, limit int) ([]model.ScheduleEntry, error) {
	out, err := s.schedule(ctx, scheduleSelect+`
		WHERE m.status = 'scheduled'
		  AND m.meeting_date >= $1
		  AND ($2::bigint IS NULL
		       OR m.created_by = $2
		       OR EXISTS (SELECT 1 FROM meeting_participants mp
		                   WHERE mp.meeting_id = m.meeting_id
		                     AND mp.user_id = $2 AND mp.response = 'accepted'))
		ORDER BY m.meeting_date, ts.start_time, m.meeting_id
		LIMIT $3`,
		from.Time, userID, limit)
	if out == nil && err == nil {
		out = []model.ScheduleEntry{}
	}
	return out, err
}

func (s *Store) schedule(ctx context.Context, q string, args ...any) ([]model.ScheduleEntry, error) {
	var out []model.ScheduleEntry
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e          model.ScheduleEntry
				date       time.Time
				start, end pgtype.Time
			)
			if err := rows.Scan(&e.MeetingID, &e.Title, &e.Description, &date, &e.Status,
				&start, &end, &e.DayOfWeek, &e.RoomName, &e.OrganizerName, &e.ParticipantCount); err != nil {
				return err
			}
			e.Date = model.Date{Time: date}
			e.StartTime, e.EndTime = clockOf(start), clockOf(end)
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

// MeetingStats returns one row per meeting in [from, to]; the duration is NULL
// when the slot row is gone.
func (s *Store) MeetingStats(ctx context.Context, from, to model.Date) ([]model.MeetingStat, error) {
	var out []model.MeetingStat
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx,
			`SELECT m.meeting_id, m.status, m.created_by, u.name,
			        (EXTRACT(EPOCH FROM (ts.end_time - ts.start_time)) / 60)::int
			 FROM meetings m
			 JOIN users u ON u.user_id = m.created_by
			 LEFT JOIN time_slots ts ON ts.slot_id = m.slot_id
			 WHERE m.meeting_date BETWEEN $1 AND $2
			 ORDER BY m.meeting_id`, from.Time, to.Time)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var st model.MeetingStat
			if err := rows.Scan(&st.MeetingID, &st.Status, &st.OrganizerID, &st.OrganizerName, &st.DurationMinutes); err != nil {
				return err
			}
			out = append(out, st)
		}
		return rows.Err()
	})
	return out, err
}
