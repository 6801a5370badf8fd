package middleware

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/auth"
)

// UnaryAuth verifies the "authorization" metadata on every method not listed
// in open and puts the principal on the context.
func UnaryAuth(v *Verifier, open map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return next(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		header := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}

		claims, err := v.Verify(ctx, header)
		if err != nil {
			return nil, status.Error(apperr.GRPCCode(err), apperr.Public(err))
		}
		return next(auth.WithPrincipal(ctx, claims.Principal()), req)
	}
}

// UnaryRateLimit limits the listed methods per client host.
func UnaryRateLimit(rl *RateLimiter, limited map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if !limited[info.FullMethod] {
			return next(ctx, req)
		}
		if !rl.Allow(clientKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "too many requests")
		}
		return next(ctx, req)
	}
}

// clientKey is the peer host without its port. A loopback peer is a local
// proxy such as the grpc-web bridge, so its x-forwarded-for wins.
func clientKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		host = p.Addr.String()
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if fwd := md.Get("x-forwarded-for"); len(fwd) > 0 {
				if first := strings.TrimSpace(strings.Split(fwd[0], ",")[0]); first != "" {
					return first
				}
			}
		}
	}
	return host
}
