// Package grpcweb translates gRPC-Web (browser HTTP/1.1) calls into native
// gRPC calls against the scheduler's gRPC listener.
package grpcweb

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// maxFrame bounds the request body the bridge will buffer.
const maxFrame = 4 << 20

type Bridge struct {
	conn    *grpc.ClientConn
	origins map[string]bool
}

// New dials the gRPC server at addr (e.g. "localhost:50051"). With no
// origins every origin is allowed.
func New(addr string, origins []string, opts ...grpc.DialOption) (*Bridge, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcweb dial: %w", err)
	}
	b := &Bridge{conn: conn}
	if len(origins) > 0 {
		b.origins = make(map[string]bool, len(origins))
		for _, o := range origins {
			b.origins[o] = true
		}
	}
	return b, nil
}

func (b *Bridge) Close() error { return b.conn.Close() }

// Handler serves gRPC-Web requests. prefix is stripped from the URL path to
// get the gRPC method name.
func (b *Bridge) Handler(prefix string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.cors(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc-web") {
			http.Error(w, "not grpc-web", http.StatusUnsupportedMediaType)
			return
		}
		b.forward(w, r, "/"+strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	})
}

func (b *Bridge) cors(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	switch {
	case b.origins == nil && origin == "":
		origin = "*"
	case b.origins != nil && !b.origins[origin]:
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers",
		"Content-Type, X-Grpc-Web, X-User-Agent, Authorization, x-grpc-web")
	w.Header().Set("Access-Control-Expose-Headers",
		"Grpc-Status, Grpc-Message, Grpc-Status-Details-Bin, grpc-status, grpc-message")
	w.Header().Set("Access-Control-Max-Age", "86400")
}

func (b *Bridge) forward(w http.ResponseWriter, r *http.Request, method string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrame+1))
	if err != nil {
		writeError(w, codes.Internal, "read body failed")
		return
	}
	if len(body) > maxFrame {
		writeError(w, codes.ResourceExhausted, "request too large")
		return
	}
	payload, err := Unframe(body)
	if err != nil {
		writeError(w, codes.InvalidArgument, err.Error())
		return
	}

	md := metadata.MD{}
	if vals := r.Header.Values("Authorization"); len(vals) > 0 {
		md.Set("authorization", vals...)
	}
	// The gRPC listener only sees the bridge's address; pass on the caller's
	// host for per-client rate limiting. Any client-sent header is replaced.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		md.Set("x-forwarded-for", host)
	}
	ctx := metadata.NewOutgoingContext(r.Context(), md)

	resp := &rawMsg{}
	err = b.conn.Invoke(ctx, method, &rawMsg{data: payload}, resp, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		st, _ := status.FromError(err)
		if st.Code() == codes.Internal || st.Code() == codes.Unavailable {
			log.Printf("grpc-web %s: %s: %s", method, st.Code(), st.Message())
		}
		writeError(w, st.Code(), st.Message())
		return
	}
	writeSuccess(w, resp.data)
}

// Unframe returns the message of a single gRPC-Web data frame:
// 1-byte flag, 4-byte big-endian length, then the message.
func Unframe(body []byte) ([]byte, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("body too short")
	}
	n := binary.BigEndian.Uint32(body[1:5])
	if int(n)+5 > len(body) {
		return nil, fmt.Errorf("incomplete frame")
	}
	return body[5 : 5+n], nil
}

// Frame wraps msg in a frame with the given flag (0x00 data, 0x80 trailer).
func Frame(flag byte, msg []byte) []byte {
	f := make([]byte, 5+len(msg))
	f[0] = flag
	binary.BigEndian.PutUint32(f[1:5], uint32(len(msg)))
	copy(f[5:], msg)
	return f
}

// rawMsg wraps raw protobuf bytes.
type rawMsg struct{ data []byte }

// rawCodec passes bytes through without marshal/unmarshal.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	return v.(*rawMsg).data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m := v.(*rawMsg)
	m.data = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string { return "raw" }

func writeError(w http.ResponseWriter, code codes.Code, msg string) {
	w.Header().Set("Content-Type", "application/grpc-web+proto")
	w.WriteHeader(http.StatusOK)
	w.Write(Frame(0x80, []byte(fmt.Sprintf("grpc-status:%d\r\ngrpc-message:%s\r\n", code, msg))))
}

func writeSuccess(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/grpc-web+proto")
	w.WriteHeader(http.StatusOK)
	w.Write(Frame(0x00, data))
	w.Write(Frame(0x80, []byte("grpc-status:0\r\n")))
}
