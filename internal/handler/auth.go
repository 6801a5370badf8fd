package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/auth"
	"meeting-scheduler-api/internal/middleware"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/request"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=student professor"`
}

func (r *registerRequest) Check(model.Date) []apperr.FieldError {
	return request.TextLength("name", r.Name, 2, 100)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=student professor admin"`
}

type session struct {
	UserID       int64      `json:"user_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         model.Role `json:"role"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int64      `json:"expires_in"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	role := model.RoleStudent
	if req.Role != "" {
		role = model.Role(req.Role)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, apperr.Store(err))
		return
	}
	u := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		Role:         role,
		PasswordHash: hash,
	}
	if err := h.dir.CreateUser(c.Request.Context(), u); err != nil {
		fail(c, err)
		return
	}

	s, err := h.issue(c, u)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusCreated, "User registered successfully", s)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	u, err := h.dir.UserByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if apperr.Is(err, apperr.KindNotFound) {
		fail(c, apperr.Unauthorized("Invalid email or password"))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		fail(c, apperr.Unauthorized("Invalid email or password"))
		return
	}
	if req.Role != "" && model.Role(req.Role) != u.Role {
		fail(c, apperr.Invalid("role", "Invalid role for this user"))
		return
	}

	s, err := h.issue(c, u)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// Verify reports whether a token is currently accepted.
func (h *Handler) Verify(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	claims, err := h.verifier.Verify(c.Request.Context(), "Bearer "+req.Token)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{
			"status":  "error",
			"message": apperr.Public(err),
			"data":    gin.H{"valid": false},
		})
		return
	}
	ok(c, http.StatusOK, gin.H{
		"valid":   true,
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    claims.Role,
	})
}

// Refresh swaps a live refresh token for a new pair. Presenting an already
// rotated token revokes every session of that user.
func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := h.bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	rt, err := h.dir.GetRefreshTokenByHash(ctx, auth.HashRefreshToken(req.RefreshToken))
	if apperr.Is(err, apperr.KindNotFound) {
		fail(c, apperr.Unauthorized("Invalid refresh token"))
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	if rt.Revoked {
		// reuse of a rotated token: assume theft
		if err := h.dir.RevokeAllRefreshTokens(ctx, rt.UserID); err != nil {
			fail(c, err)
			return
		}
		fail(c, apperr.Unauthorized("Refresh token has been revoked"))
		return
	}
	if !h.opts.Now().Before(rt.ExpiresAt) {
		fail(c, apperr.Unauthorized("Refresh token has expired"))
		return
	}

	u, err := h.svc.User(ctx, rt.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		fail(c, apperr.Store(err))
		return
	}
	newID := uuid.New().String()
	if err := h.dir.RotateRefreshToken(ctx, rt.ID, newID, u.ID, hash, h.opts.Now().Add(h.opts.RefreshTTL)); err != nil {
		fail(c, err)
		return
	}
	tok, err := h.accessToken(u)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, h.session(u, tok, raw))
}

// Logout revokes the presented access token and every refresh token of the user.
func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	raw, _ := middleware.BearerToken(c.GetHeader("Authorization"))
	v, _ := c.Get(middleware.ClaimsKey)
	claims, _ := v.(*auth.Claims)

	if claims != nil && claims.ExpiresAt != nil {
		ttl := claims.ExpiresAt.Time.Sub(h.opts.Now())
		if err := h.revoked.Revoke(ctx, raw, ttl); err != nil {
			fail(c, apperr.Store(err))
			return
		}
	}
	if err := h.dir.RevokeAllRefreshTokens(ctx, principal(ctx).UserID); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, http.StatusOK, "Logged out", nil)
}

func (h *Handler) issue(c *gin.Context, u *model.User) (*session, error) {
	tok, err := h.accessToken(u)
	if err != nil {
		return nil, err
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, apperr.Store(err)
	}
	if _, err := h.dir.CreateRefreshToken(c.Request.Context(), u.ID, hash, h.opts.Now().Add(h.opts.RefreshTTL)); err != nil {
		return nil, err
	}
	return h.session(u, tok, raw), nil
}

func (h *Handler) accessToken(u *model.User) (string, error) {
	tok, err := auth.MakeToken(auth.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}, h.opts.Secret, h.opts.TokenTTL)
	if err != nil {
		return "", apperr.Store(errors.Join(errors.New("sign token"), err))
	}
	return tok, nil
}

func (h *Handler) session(u *model.User, tok, refresh string) *session {
	return &session{
		UserID:       u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Token:        tok,
		RefreshToken: refresh,
		ExpiresIn:    int64(h.opts.TokenTTL / time.Second),
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
