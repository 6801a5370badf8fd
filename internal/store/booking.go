package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"meeting-scheduler-api/internal/model"
)

const bookingSelect = `
SELECT m.meeting_id, m.title, m.room_id, r.name, m.slot_id, m.meeting_date,
       ts.start_time, ts.end_time, m.status
FROM meetings m
JOIN time_slots ts ON ts.slot_id = m.slot_id
LEFT JOIN meeting_rooms r ON r.room_id = m.room_id`

func (s *Store) Bookings(ctx context.Context, date model.Date, roomID *int64) ([]model.Booking, error) {
	return s.bookings(ctx, bookingSelect+`
		WHERE m.meeting_date = $1
		  AND m.status <> 'cancelled'
		  AND ($2::bigint IS NULL OR m.room_id = $2)
		ORDER BY ts.start_time, m.meeting_id`,
		date.Time, roomID)
}

func (s *Store) AcceptedBookings(ctx context.Context, userID int64, from, to model.Date, statuses ...model.MeetingStatus) ([]model.Booking, error) {
	return s.bookings(ctx, bookingSelect+`
		JOIN meeting_participants mp ON mp.meeting_id = m.meeting_id
		WHERE mp.user_id = $1
		  AND mp.response = 'accepted'
		  AND m.meeting_date BETWEEN $2 AND $3
		  AND m.status = ANY($4)
		ORDER BY m.meeting_date, ts.start_time, m.meeting_id`,
		userID, from.Time, to.Time, statusStrings(statuses))
}

func (s *Store) bookings(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	var out []model.Booking
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				b          model.Booking
				date       time.Time
				start, end pgtype.Time
			)
			if err := rows.Scan(&b.MeetingID, &b.Title, &b.RoomID, &b.RoomName, &b.SlotID, &date,
				&start, &end, &b.Status); err != nil {
				return err
			}
			b.Date = model.Date{Time: date}
			b.StartTime, b.EndTime = clockOf(start), clockOf(end)
			out = append(out, b)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) UnavailableSlotIDs(ctx context.Context, userID int64) ([]int64, error) {
	var out []int64
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx,
			`SELECT slot_id FROM user_availability
			 WHERE user_id = $1 AND NOT is_available ORDER BY slot_id`, userID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		return err
	})
	return out, err
}

func (s *Store) SetAvailability(ctx context.Context, a model.Availability) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		_, err := c.Exec(ctx,
			`INSERT INTO user_availability (user_id, slot_id, is_available) VALUES ($1,$2,$3)
			 ON CONFLICT (user_id, slot_id) DO UPDATE SET is_available = EXCLUDED.is_available`,
			a.UserID, a.SlotID, a.IsAvailable,
		)
		return err
	})
}
