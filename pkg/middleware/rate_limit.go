package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/siteauth/pkg/metrics"
	"golang.org/x/time/rate"
)

// limiterStore holds per-key token buckets. A bucket idle for at least its
// refill time (and at least a minute) is full again and gets dropped by the
// next sweep.
type limiterStore struct {
	mu        sync.Mutex
	m         map[string]*limiterEntry
	rps       float64
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(rps float64, burst int) *limiterStore {
	idle := time.Minute
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &limiterStore{m: map[string]*limiterEntry{}, rps: rps, burst: burst, idle: idle, now: time.Now}
}

// get returns (and lazily creates) the token-bucket limiter for key.
func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		s.sweepLocked(now)
	}
	e, ok := s.m[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.m[key] = e
	}
	e.lastSeen = now
	return e.lim
}

func (s *limiterStore) sweepLocked(now time.Time) {
	for k, e := range s.m {
		if now.Sub(e.lastSeen) >= s.idle {
			delete(s.m, k)
		}
	}
	s.lastSweep = now
}

func (s *limiterStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// rateKey prefers the signed-in subject (NAT-friendly per-user limiting) and
// falls back to the client IP. Sessions must run first for the subject to be
// visible.
func rateKey(c *gin.Context) string {
	if h := CurrentSession(c); h != nil {
		if u := h.User(); u != nil && u.Sub != "" {
			return "sub:" + u.Sub
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst)
	return func(c *gin.Context) {
		lim := store.get(rateKey(c))
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
