package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
)

func (s *Store) CreateRoom(ctx context.Context, r *model.Room) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		return c.QueryRow(ctx,
			`INSERT INTO meeting_rooms (name, capacity, is_active) VALUES ($1,$2,$3) RETURNING room_id`,
			r.Name, r.Capacity, r.IsActive,
		).Scan(&r.ID)
	})
}

func (s *Store) ActiveRooms(ctx context.Context) ([]model.Room, error) {
	var out []model.Room
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx,
			`SELECT room_id, name, capacity, is_active FROM meeting_rooms
			 WHERE is_active ORDER BY room_id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r model.Room
			if err := rows.Scan(&r.ID, &r.Name, &r.Capacity, &r.IsActive); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) CreateTimeSlot(ctx context.Context, sl *model.TimeSlot) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		return c.QueryRow(ctx,
			`INSERT INTO time_slots (start_time, end_time, day_of_week, is_recurring)
			 VALUES ($1,$2,$3,$4) RETURNING slot_id`,
			pgTime(sl.StartTime), pgTime(sl.EndTime), sl.DayOfWeek, sl.IsRecurring,
		).Scan(&sl.ID)
	})
}

const slotColumns = `slot_id, start_time, end_time, day_of_week, is_recurring`

func (s *Store) TimeSlots(ctx context.Context) ([]model.TimeSlot, error) {
	var out []model.TimeSlot
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx, `SELECT `+slotColumns+` FROM time_slots ORDER BY start_time, slot_id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			sl, err := scanSlot(rows)
			if err != nil {
				return err
			}
			out = append(out, sl)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) TimeSlot(ctx context.Context, id int64) (*model.TimeSlot, error) {
	var sl model.TimeSlot
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		var err error
		sl, err = scanSlot(c.QueryRow(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE slot_id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("time slot")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func scanSlot(row pgx.Row) (model.TimeSlot, error) {
	var (
		sl         model.TimeSlot
		start, end pgtype.Time
	)
	if err := row.Scan(&sl.ID, &start, &end, &sl.DayOfWeek, &sl.IsRecurring); err != nil {
		return sl, err
	}
	sl.StartTime, sl.EndTime = clockOf(start), clockOf(end)
	return sl, nil
}
