package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxTracked caps the number of client buckets held in memory. The
// dashboard serves a small audit team; anything near this limit is a
// flood.
const maxTracked = 10000

// RateLimiter throttles dashboard requests per client IP with token
// buckets, so one stuck frontend poller cannot starve the live feed for
// everyone else.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket
	perSec  float64
	burst   int

	now func() time.Time // for testing
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows perSec sustained requests per client with the
// given burst headroom.
func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*tokenBucket),
		perSec:  perSec,
		burst:   burst,
		now:     time.Now,
	}
}

// Handler enforces the limit, answering 429 with a Retry-After hint when a
// client runs dry.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, wait, ok := rl.take(clientIP(r))

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take consumes one token for the client, refilling by elapsed time first.
// When the bucket is dry it reports how long until the next token.
func (rl *RateLimiter) take(ip string) (remaining int, wait time.Duration, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.clients[ip]
	if !exists {
		if len(rl.clients) >= maxTracked {
			return 0, time.Duration(float64(time.Second) / rl.perSec), false
		}
		b = &tokenBucket{tokens: float64(rl.burst)}
		rl.clients[ip] = b
	} else {
		b.tokens += now.Sub(b.seen).Seconds() * rl.perSec
		if b.tokens > float64(rl.burst) {
			b.tokens = float64(rl.burst)
		}
	}
	b.seen = now

	if b.tokens < 1 {
		return 0, time.Duration((1 - b.tokens) / rl.perSec * float64(time.Second)), false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// StartCleanup periodically drops buckets idle longer than maxIdle. The
// returned function stops the sweeper.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) sweep(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for ip, b := range rl.clients {
		if b.seen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// Len reports how many client buckets are live.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// clientIP is taken from RemoteAddr only. Forwarding headers are
// spoofable, so they never feed the limiter; chi's RealIP runs later in
// the chain for logging.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
