package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
)

const userColumns = `user_id, name, email, role, password_hash, created_at`

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		return c.QueryRow(ctx,
			`INSERT INTO users (name, email, role, password_hash) VALUES ($1,$2,$3,$4)
			 RETURNING user_id, created_at`,
			u.Name, u.Email, string(u.Role), u.PasswordHash,
		).Scan(&u.ID, &u.CreatedAt)
	})
}

func (s *Store) UserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userWhere(ctx, `user_id = $1`, id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userWhere(ctx, `email = $1`, email)
}

func (s *Store) userWhere(ctx context.Context, cond string, arg any) (*model.User, error) {
	u := &model.User{}
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		err := c.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg).
			Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("user")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUserRole is the only mutation users allow after creation.
func (s *Store) UpdateUserRole(ctx context.Context, id int64, role model.Role) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		tag, err := c.Exec(ctx, `UPDATE users SET role = $1 WHERE user_id = $2`, string(role), id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("user")
		}
		return nil
	})
}
