// Package store is the Postgres implementation of the scheduling repository and
// the account directory. Every call borrows one pooled connection for its
// duration and returns it on all paths.
package store

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/scheduling"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ scheduling.Repository = (*Store)(nil)

type Store struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func New(pool *pgxpool.Pool, acquireTimeout time.Duration) *Store {
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}
	return &Store{pool: pool, acquireTimeout: acquireTimeout}
}

// Migrate applies the embedded schema files in name order. They are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		for _, name := range names {
			sql, err := migrations.ReadFile(name)
			if err != nil {
				return err
			}
			if _, err := c.Exec(ctx, string(sql)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		return c.Ping(ctx)
	})
}

// withConn runs fn on a pooled connection. Waiting longer than the acquire
// timeout for a free connection is reported as Unavailable.
func (s *Store) withConn(ctx context.Context, fn func(*pgxpool.Conn) error) error {
	actx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	c, err := s.pool.Acquire(actx)
	cancel()
	if err != nil {
		return apperr.Unavailable(err)
	}
	defer c.Release()
	return mapErr(fn(c))
}

// withTx runs fn in a transaction. Anything but a successful commit rolls back.
func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		tx, err := c.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return apperr.Conflict(duplicateMessage(pgErr.ConstraintName), err)
		case foreignKeyViolation:
			return apperr.NotFound(referenced(pgErr.ConstraintName))
		case checkViolation:
			return apperr.Invalid(pgErr.ColumnName, "value violates "+pgErr.ConstraintName)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Unavailable(err)
	}
	return apperr.Store(err)
}

func duplicateMessage(constraint string) string {
	switch {
	case strings.HasPrefix(constraint, "users_email"):
		return "email already registered"
	case strings.HasPrefix(constraint, "meeting_rooms_name"):
		return "room name already exists"
	case strings.HasPrefix(constraint, "meeting_participants"):
		return "duplicate participant"
	}
	return "record already exists"
}

// referenced names the missing parent row from a foreign key constraint name
// like "meeting_participants_user_id_fkey".
func referenced(constraint string) string {
	switch {
	case strings.Contains(constraint, "_meeting_id_"):
		return "meeting"
	case strings.Contains(constraint, "_room_id_"):
		return "room"
	case strings.Contains(constraint, "_slot_id_"):
		return "time slot"
	case strings.Contains(constraint, "_user_id_"), strings.Contains(constraint, "_created_by_"):
		return "user"
	}
	return "referenced record"
}

const microsPerMinute = int64(time.Minute / time.Microsecond)

func pgTime(c model.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * microsPerMinute, Valid: true}
}

func clockOf(t pgtype.Time) model.Clock {
	return model.Clock(t.Microseconds / microsPerMinute)
}

func statusStrings(statuses []model.MeetingStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
