package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP with a token bucket each
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewRateLimiter allows perMinute requests per IP with bursts of burst,
// unlimited when perMinute <= 0.
// Buckets unused for ten minutes are dropped by Sweep.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Sweep drops idle buckets
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idle)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// RunSweeper calls Sweep every interval until stop is closed
func (rl *RateLimiter) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

func (rl *RateLimiter) reserve(ip string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	if v.limiter.AllowN(now, 1) {
		return 0
	}
	r := v.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	if delay <= 0 {
		delay = time.Second
	}
	return delay
}

// Handler returns an http.Handler middleware that enforces the rate limit.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// chi RealIP middleware sets RemoteAddr to the actual client IP
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if wait := rl.reserve(ip); wait > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests, try again later"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
