package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
)

func (s *Store) CreateRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		_, err := c.Exec(ctx,
			`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES ($1,$2,$3,$4)`,
			id, userID, tokenHash, expiresAt,
		)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	rt := &model.RefreshToken{}
	err := s.withConn(ctx, func(c *pgxpool.Conn) error {
		err := c.QueryRow(ctx,
			`SELECT id, user_id, token_hash, expires_at, revoked, replaced_by, created_at
			 FROM refresh_tokens WHERE token_hash = $1`, tokenHash,
		).Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked, &rt.ReplacedBy, &rt.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("refresh token")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// RotateRefreshToken revokes the old token and links it to its replacement.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID, newID string, userID int64, newHash string, newExpiry time.Time) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE refresh_tokens SET revoked = true, replaced_by = $1 WHERE id = $2`,
			newID, oldID,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES ($1,$2,$3,$4)`,
			newID, userID, newHash, newExpiry,
		)
		return err
	})
}

// revoke all tokens for a user (on logout or suspected theft)
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID int64) error {
	return s.withConn(ctx, func(c *pgxpool.Conn) error {
		_, err := c.Exec(ctx,
			`UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`,
			userID,
		)
		return err
	})
}
