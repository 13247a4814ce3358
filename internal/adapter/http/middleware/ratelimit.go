package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterCleanupEvery = 5 * time.Minute
)

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimiter throttles requests per client address with a token bucket.
type RateLimiter struct {
	service string
	limit   rate.Limit
	burst   int
	clock   clock.Clock

	mu      sync.Mutex
	clients map[string]*rateLimitClient

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows rps requests per second with bursts of burst per client.
// A non-positive rps disables limiting.
func NewRateLimiter(service string, rps float64, burst int, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	rl := &RateLimiter{
		service: service,
		limit:   limit,
		burst:   burst,
		clock:   clk,
		clients: make(map[string]*rateLimitClient),
		stop:    make(chan struct{}),
	}
	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit == rate.Inf || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.allow(clientKey(r)) {
			metrics.HttpRateLimited.WithLabelValues(rl.service).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			reject(w, r, http.StatusTooManyRequests, msgRateLimited)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	now := rl.clock.Now()

	rl.mu.Lock()
	client, ok := rl.clients[key]
	if !ok {
		client = &rateLimitClient{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = client
	}
	rl.mu.Unlock()

	client.lastSeen.Store(now.UnixNano())
	return client.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) retryAfter() int {
	return max(1, int(math.Ceil(1/float64(rl.limit))))
}

// cleanupOnce evicts clients idle for longer than limiterIdleTTL.
func (rl *RateLimiter) cleanupOnce() {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, client := range rl.clients {
		if now.Sub(time.Unix(0, client.lastSeen.Load())) > limiterIdleTTL {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanupOnce()
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// clientKey is the first X-Forwarded-For address, or the peer address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
