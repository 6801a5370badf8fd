package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/auth"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/revocation"
)

// Verifier checks bearer tokens against the signing secret and the deny list.
type Verifier struct {
	secret  string
	revoked revocation.List
}

func NewVerifier(secret string, revoked revocation.List) *Verifier {
	return &Verifier{secret: secret, revoked: revoked}
}

// BearerToken extracts the token from "Authorization: Bearer <jwt>".
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.Unauthorized("Missing Authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperr.Unauthorized("Invalid Authorization header format")
	}
	return parts[1], nil
}

// Verify returns the principal behind an Authorization header value.
func (v *Verifier) Verify(ctx context.Context, header string) (*auth.Claims, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	claims, err := auth.ParseToken(raw, v.secret)
	if errors.Is(err, auth.ErrExpiredToken) {
		return nil, apperr.Unauthorized("Token has expired")
	}
	if err != nil {
		return nil, apperr.Unauthorized("Invalid token")
	}
	if v.revoked != nil {
		revoked, err := v.revoked.IsRevoked(ctx, raw)
		if err != nil {
			log.Printf("revocation lookup: %v", err)
			return nil, apperr.Unauthorized("Invalid token")
		}
		if revoked {
			return nil, apperr.Unauthorized("Token has been revoked")
		}
	}
	return claims, nil
}

// Auth rejects requests without a valid token and stores the principal on
// the request context.
func Auth(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := v.Verify(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), claims.Principal()))
		c.Next()
	}
}

// RequireRole runs after Auth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return func(c *gin.Context) {
		p, ok := auth.FromContext(c.Request.Context())
		if !ok {
			abort(c, apperr.Unauthorized("User not authenticated"))
			return
		}
		if !p.HasRole(roles...) {
			abort(c, apperr.Forbidden("Insufficient permissions. Required roles: "+strings.Join(names, ", ")))
			return
		}
		c.Next()
	}
}

const ClaimsKey = "claims"

func abort(c *gin.Context, err error) {
	code := apperr.HTTPStatus(err)
	if code == http.StatusInternalServerError {
		log.Printf("[%s] %v", RequestIDFrom(c), err)
	}
	c.AbortWithStatusJSON(code, gin.H{"status": "error", "message": apperr.Public(err)})
}
