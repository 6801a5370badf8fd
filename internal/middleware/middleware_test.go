package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"meeting-scheduler-api/internal/auth"
	"meeting-scheduler-api/internal/model"
	"meeting-scheduler-api/internal/revocation"
)

const secret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, role model.Role, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.MakeToken(auth.Principal{UserID: 5, Email: "u@uni.edu", Role: role}, secret, ttl)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func router(v *Verifier, roles ...model.Role) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	chain := []gin.HandlerFunc{Auth(v)}
	if len(roles) > 0 {
		chain = append(chain, RequireRole(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		p, _ := auth.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID})
	})
	r.GET("/x", chain...)
	return r
}

func do(r http.Handler, header string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuth(t *testing.T) {
	revoked := revocation.NewMemory()
	v := NewVerifier(secret, revoked)
	r := router(v)

	gone := token(t, model.RoleStudent, time.Hour)
	_ = revoked.Revoke(context.Background(), gone, time.Hour)

	tests := []struct {
		name   string
		header string
		code   int
		msg    string
	}{
		{"missing header", "", http.StatusUnauthorized, "Missing Authorization header"},
		{"bad format", "Token abc", http.StatusUnauthorized, "Invalid Authorization header format"},
		{"garbage", "Bearer abc", http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer " + token(t, model.RoleStudent, -time.Minute), http.StatusUnauthorized, "Token has expired"},
		{"revoked", "Bearer " + gone, http.StatusUnauthorized, "Token has been revoked"},
		{"valid", "Bearer " + token(t, model.RoleStudent, time.Hour), http.StatusOK, ""},
		{"lowercase scheme", "bearer " + token(t, model.RoleStudent, time.Hour), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(r, tt.header)
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
			if tt.msg != "" {
				if body["status"] != "error" || body["message"] != tt.msg {
					t.Errorf("unexpected body %v", body)
				}
			} else if body["user_id"] != float64(5) {
				t.Errorf("principal not propagated: %v", body)
			}
			if w.Header().Get(RequestIDHeader) == "" {
				t.Error("missing request id header")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := router(NewVerifier(secret, nil), model.RoleProfessor, model.RoleAdmin)

	w, body := do(r, "Bearer "+token(t, model.RoleStudent, time.Hour))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if body["message"] != "Insufficient permissions. Required roles: professor, admin" {
		t.Errorf("unexpected message %v", body["message"])
	}

	w, _ = do(r, "Bearer "+token(t, model.RoleAdmin, time.Hour))
	if w.Code != http.StatusOK {
		t.Errorf("admin should pass, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w, _ := do(r, "")
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected codes %v", codes)
	}
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	start := time.Now()
	rl.now = func() time.Time { return start }
	rl.Allow("a")
	rl.Allow("b")

	rl.now = func() time.Time { return start.Add(5 * time.Minute) }
	rl.Allow("c")
	if n := rl.size(); n != 1 {
		t.Errorf("expected idle clients swept, %d left", n)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name string
		addr string
		fwd  string
		want string
	}{
		{"ipv4 port dropped", "203.0.113.7:50123", "", "203.0.113.7"},
		{"ipv6 port dropped", "[2001:db8::1]:443", "", "2001:db8::1"},
		{"loopback forwarded", "127.0.0.1:40000", "198.51.100.2, 10.0.0.1", "198.51.100.2"},
		{"loopback without header", "127.0.0.1:40000", "", "127.0.0.1"},
		{"remote header ignored", "203.0.113.7:50123", "198.51.100.2", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := net.ResolveTCPAddr("tcp", tt.addr)
			if err != nil {
				t.Fatalf("addr: %v", err)
			}
			ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: addr})
			if tt.fwd != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("x-forwarded-for", tt.fwd))
			}
			if got := clientKey(ctx); got != tt.want {
				t.Errorf("clientKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnaryRateLimitSharesBucketAcrossPorts(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	limit := UnaryRateLimit(rl, map[string]bool{"/svc/Login": true})
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Login"}
	next := func(context.Context, any) (any, error) { return "ok", nil }

	for i, port := range []int{50001, 50002} {
		ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("203.0.113.7"), Port: port}})
		_, err := limit(ctx, nil, info, next)
		if i == 0 && err != nil {
			t.Fatalf("first call: %v", err)
		}
		if i == 1 && status.Code(err) != codes.ResourceExhausted {
			t.Errorf("second connection: got %v, want ResourceExhausted", err)
		}
	}
}
