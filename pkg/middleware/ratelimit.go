package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/utafrali/AppStoreGo/pkg/httputil"
)

// RateLimitConfig configures per-client token buckets. A zero RPS disables
// limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// TTL evicts clients not seen for this long.
	TTL time.Duration
}

// DefaultRateLimitConfig allows 5 requests per second with bursts of 10.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RPS: 5, Burst: 10, TTL: 3 * time.Minute}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorStore keeps one limiter per client. Stale entries are swept
// lazily, at most once per TTL, while handling requests.
type visitorStore struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	cfg       RateLimitConfig
	lastSweep time.Time
	now       func() time.Time
}

func newVisitorStore(cfg RateLimitConfig) *visitorStore {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultRateLimitConfig().TTL
	}
	return &visitorStore{
		visitors:  make(map[string]*visitor),
		cfg:       cfg,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *visitorStore) limiter(client string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.cfg.TTL {
		for k, v := range s.visitors {
			if now.Sub(v.lastSeen) > s.cfg.TTL {
				delete(s.visitors, k)
			}
		}
		s.lastSweep = now
	}

	v, ok := s.visitors[client]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.visitors[client] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *visitorStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimit enforces per-client-IP token bucket limiting and answers 429
// with a RATE_LIMITED envelope once a client's bucket is empty.
func RateLimit(cfg RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	store := newVisitorStore(cfg)
	return rateLimit(store, logger)
}

func rateLimit(store *visitorStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !store.limiter(ip).Allow() {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "RATE_LIMITED", Message: "too many requests"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first address of X-Forwarded-For, then X-Real-IP,
// then the connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
