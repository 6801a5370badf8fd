package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"meeting-scheduler-api/internal/config"
	gweb "meeting-scheduler-api/internal/grpcweb"
	"meeting-scheduler-api/internal/handler"
	"meeting-scheduler-api/internal/middleware"
	"meeting-scheduler-api/internal/revocation"
	"meeting-scheduler-api/internal/rpc"
	"meeting-scheduler-api/internal/scheduling"
	"meeting-scheduler-api/internal/store"
)

var _ handler.Directory = (*store.Store)(nil)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	// database
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db config: %v", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	log.Println("connected to postgres")

	st := store.New(pool, cfg.AcquireTimeout)
	if cfg.Migrate {
		if err := st.Migrate(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("migrations applied")
	}

	revoked := revocationList(ctx, cfg.RedisURL)

	svc := scheduling.New(st, scheduling.WithLocation(cfg.Location))
	h := handler.New(svc, st, revoked, handler.Options{
		Secret:     cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// grpc server
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.UnaryRateLimit(rl, rpc.LimitedMethods()),
			middleware.UnaryAuth(h.Verifier(), rpc.OpenMethods()),
		),
	)
	rpc.Register(srv, rpc.NewServer(svc, st, cfg.JWTSecret, cfg.TokenTTL))
	hs := health.NewServer()
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	go func() {
		log.Printf("grpc on :%s", cfg.GRPCPort)
		if err := srv.Serve(lis); err != nil {
			log.Printf("grpc: %v", err)
		}
	}()

	// grpc-web bridge -> forwards browser requests to grpc on localhost
	bridge, err := gweb.New("localhost:"+cfg.GRPCPort, cfg.AllowedOrigins)
	if err != nil {
		log.Fatalf("bridge: %v", err)
	}
	defer bridge.Close()

	mux := http.NewServeMux()
	mux.Handle("/rpc/", bridge.Handler("/rpc"))
	mux.Handle("/", h.Router(cfg.AllowedOrigins, rl))

	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("http on :%s", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http: %v", err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Println("shutting down")
	hs.Shutdown()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	srv.GracefulStop()
}

// revocationList uses Redis when configured and reachable so revocations are
// shared between instances; otherwise it falls back to process memory.
func revocationList(ctx context.Context, url string) revocation.List {
	if url == "" {
		log.Println("REDIS_URL not set, token revocation is per process")
		return revocation.NewMemory()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}
	log.Println("connected to redis")
	return revocation.NewRedis(rdb)
}
