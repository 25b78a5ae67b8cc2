package httpx

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginRateLimiterConfig configures per-client login throttling.
type LoginRateLimiterConfig struct {
	PerMinute       float64
	Burst           int
	CleanupInterval time.Duration
	// TrustForwarded keys clients by the first X-Forwarded-For address.
	TrustForwarded bool
	// OnLimited runs for every rejected attempt; optional.
	OnLimited func()
	Logger    *slog.Logger
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LoginRateLimiter throttles login attempts per client address.
// Stop must be called to end its cleanup goroutine.
type LoginRateLimiter struct {
	cfg   LoginRateLimiterConfig
	limit rate.Limit

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewLoginRateLimiter creates a limiter and starts its cleanup goroutine.
func NewLoginRateLimiter(cfg LoginRateLimiterConfig) *LoginRateLimiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 10
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	rl := &LoginRateLimiter{
		cfg:     cfg,
		limit:   rate.Limit(cfg.PerMinute / 60),
		clients: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine and waits for it to exit. It is safe to call more than once.
func (rl *LoginRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	<-rl.done
}

// Allow reports whether client may attempt another login now.
func (rl *LoginRateLimiter) Allow(client string) bool {
	now := time.Now()
	rl.mu.Lock()
	cl, ok := rl.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.cfg.Burst)}
		rl.clients[client] = cl
	}
	cl.lastAccess = now
	rl.mu.Unlock()
	return cl.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (rl *LoginRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r, rl.cfg.TrustForwarded)
		if !rl.Allow(client) {
			if rl.cfg.OnLimited != nil {
				rl.cfg.OnLimited()
			}
			rl.cfg.Logger.WarnContext(r.Context(), "login rate limit exceeded", "client", client)
			retryAfter := int(math.Ceil(1 / float64(rl.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":   "rate_limited",
				"message": "too many login attempts, try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *LoginRateLimiter) cleanupLoop() {
	defer close(rl.done)
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops clients idle for more than two cleanup intervals.
func (rl *LoginRateLimiter) cleanup(now time.Time) {
	ttl := rl.cfg.CleanupInterval * 2
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, cl := range rl.clients {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.clients, client)
		}
	}
}

func clientAddr(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
