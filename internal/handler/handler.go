// Package handler is the REST façade over the scheduling core. Every response
// uses the {status, data|message} envelope.
package handler

import (
	"context"
	"time"

	"meeting-scheduler-api/internal/auth"
	"meeting-scheduler-api/internal/middleware"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/revocation"
	"meeting-scheduler-api/internal/scheduling"
)

// Directory is the account and reference-data storage the façade needs beyond
// the scheduling core.
type Directory interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUserRole(ctx context.Context, id int64, role model.Role) error

	CreateRoom(ctx context.Context, r *model.Room) error
	CreateTimeSlot(ctx context.Context, s *model.TimeSlot) error

	CreateRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID string, userID int64, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID int64) error
}

type Options struct {
	Secret     string
	TokenTTL   time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

type Handler struct {
	svc      *scheduling.Service
	dir      Directory
	revoked  revocation.List
	verifier *middleware.Verifier
	opts     Options
}

func New(svc *scheduling.Service, dir Directory, revoked revocation.List, opts Options) *Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	setupValidator()
	return &Handler{
		svc:      svc,
		dir:      dir,
		revoked:  revoked,
		verifier: middleware.NewVerifier(opts.Secret, revoked),
		opts:     opts,
	}
}

func (h *Handler) Verifier() *middleware.Verifier { return h.verifier }

func (h *Handler) today() model.Date {
	return model.DateOf(h.opts.Now().In(h.svc.Location()))
}

func principal(ctx context.Context) auth.Principal {
	p, _ := auth.FromContext(ctx)
	return p
}
