package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"meeting-scheduler-api/internal/apperr"
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	r         rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		r:       rate.Limit(rps),
		burst:   burst,
		idle:    3 * time.Minute,
		now:     time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.get(key).Allow()
}

// get also drops clients idle for longer than rl.idle, at most once a minute.
func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if now.Sub(rl.lastSweep) > time.Minute {
		for k, c := range rl.clients {
			if now.Sub(c.seen) > rl.idle {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}
	if c, ok := rl.clients[key]; ok {
		c.seen = now
		return c.lim
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.clients[key] = &client{lim: l, seen: now}
	return l
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimit limits by client IP.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			abort(c, apperr.RateLimited())
			return
		}
		c.Next()
	}
}
