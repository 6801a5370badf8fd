package grpcweb

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
)

func bridge(t *testing.T, origins ...string) http.Handler {
	t.Helper()
	return bridgeWith(t, nil, origins...)
}

func bridgeWith(t *testing.T, opts []grpc.ServerOption, origins ...string) http.Handler {
	t.Helper()
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus("scheduler", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	b, err := New("passthrough:///bufnet", origins, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b.Handler("/rpc")
}

func post(h http.Handler, path string, msg proto.Message) *httptest.ResponseRecorder {
	payload, _ := proto.Marshal(msg)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(Frame(0x00, payload)))
	req.Header.Set("Content-Type", "application/grpc-web+proto")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestForward(t *testing.T) {
	h := bridge(t)
	w := post(h, "/rpc/grpc.health.v1.Health/Check", &healthpb.HealthCheckRequest{Service: "scheduler"})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	msg, err := Unframe(w.Body.Bytes())
	if err != nil {
		t.Fatalf("unframe: %v", err)
	}
	var resp healthpb.HealthCheckResponse
	if err := proto.Unmarshal(msg, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v", resp.Status)
	}
	if !strings.Contains(w.Body.String(), "grpc-status:0") {
		t.Error("missing ok trailer")
	}
}

func TestForwardClientAddress(t *testing.T) {
	var got metadata.MD
	capture := func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		got, _ = metadata.FromIncomingContext(ctx)
		return next(ctx, req)
	}
	h := bridgeWith(t, []grpc.ServerOption{grpc.UnaryInterceptor(capture)})

	payload, _ := proto.Marshal(&healthpb.HealthCheckRequest{Service: "scheduler"})
	req := httptest.NewRequest(http.MethodPost, "/rpc/grpc.health.v1.Health/Check", bytes.NewReader(Frame(0x00, payload)))
	req.Header.Set("Content-Type", "application/grpc-web+proto")
	req.Header.Set("Authorization", "Bearer abc")
	req.Header.Set("X-Forwarded-For", "10.9.9.9")
	req.RemoteAddr = "198.51.100.23:61234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}

	if fwd := got.Get("x-forwarded-for"); len(fwd) != 1 || fwd[0] != "198.51.100.23" {
		t.Errorf("x-forwarded-for = %v, want [198.51.100.23]", fwd)
	}
	if a := got.Get("authorization"); len(a) != 1 || a[0] != "Bearer abc" {
		t.Errorf("authorization = %v", a)
	}
}

func TestForwardError(t *testing.T) {
	h := bridge(t)
	w := post(h, "/rpc/grpc.health.v1.Health/Check", &healthpb.HealthCheckRequest{Service: "unknown"})
	// NotFound
	if !strings.Contains(w.Body.String(), "grpc-status:5") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRejects(t *testing.T) {
	h := bridge(t, "https://app.example.edu")

	tests := []struct {
		name   string
		method string
		ctype  string
		body   []byte
		code   int
		status string
	}{
		{"get", http.MethodGet, "application/grpc-web+proto", nil, http.StatusMethodNotAllowed, ""},
		{"json", http.MethodPost, "application/json", []byte("{}"), http.StatusUnsupportedMediaType, ""},
		{"short frame", http.MethodPost, "application/grpc-web+proto", []byte{0, 0}, http.StatusOK, "grpc-status:3"},
		{"truncated frame", http.MethodPost, "application/grpc-web+proto", []byte{0, 0, 0, 0, 9, 1}, http.StatusOK, "grpc-status:3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/rpc/grpc.health.v1.Health/Check", bytes.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.ctype)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.code {
				t.Fatalf("code = %d, want %d", w.Code, tt.code)
			}
			if tt.status != "" && !strings.Contains(w.Body.String(), tt.status) {
				t.Errorf("body = %q, want %s", w.Body.String(), tt.status)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	h := bridge(t, "https://app.example.edu")

	for origin, want := range map[string]string{
		"https://app.example.edu": "https://app.example.edu",
		"https://evil.example":    "",
	} {
		req := httptest.NewRequest(http.MethodOptions, "/rpc/x", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("%s: allow origin = %q, want %q", origin, got, want)
		}
	}
}
