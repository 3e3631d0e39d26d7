package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window for one key.
	Max    int
	Window time.Duration
	// KeyFunc picks the bucket for a request. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
}

// window holds the counts of the current and previous fixed windows; the
// previous one is weighted by its overlap with the sliding window.
type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

type limiter struct {
	max     int
	size    time.Duration
	keyFunc func(*http.Request) string
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	kf := cfg.KeyFunc
	if kf == nil {
		kf = ClientIP
	}
	return &limiter{
		max:     cfg.Max,
		size:    cfg.Window,
		keyFunc: kf,
		now:     time.Now,
		buckets: make(map[string]*window),
	}
}

// take consumes one request for key if the limit allows it.
func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.buckets[key]
	if w == nil {
		w = &window{currStart: now.Truncate(l.size)}
		l.buckets[key] = w
	}
	if since := now.Sub(w.currStart); since >= l.size {
		w.prev = w.curr
		if since >= 2*l.size {
			w.prev = 0
		}
		w.curr = 0
		w.currStart = now.Truncate(l.size)
	}

	weight := 1 - now.Sub(w.currStart).Seconds()/l.size.Seconds()
	count := w.prev*max(weight, 0) + w.curr
	reset = w.currStart.Add(l.size)
	if count >= float64(l.max) {
		return 0, reset, false
	}

	w.curr++
	return max(int(float64(l.max)-count-1), 0), reset, true
}

// sweep drops buckets idle for two full windows.
func (l *limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.buckets {
		if now.Sub(w.currStart) >= 2*l.size {
			delete(l.buckets, key)
		}
	}
}

func (l *limiter) handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := l.now()
		remaining, reset, ok := l.take(l.keyFunc(r), now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !ok {
			wait := max(reset.Sub(now), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit limits requests per key with a sliding window. Rejected requests
// get 429 and a Retry-After header; every response carries X-RateLimit-*.
// Stale buckets are never evicted, see RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).handler
}

// RateLimitWithCleanup is RateLimit plus a goroutine evicting idle buckets
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		t := time.NewTicker(2 * l.size)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.sweep(now)
			}
		}
	}()
	return l.handler
}

// ClientIP keys requests by the first X-Forwarded-For hop, X-Real-IP or the
// peer address, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SessionOrIP keys requests by the named session cookie, falling back to
// ClientIP for anonymous callers.
func SessionOrIP(cookie string) func(*http.Request) string {
	return func(r *http.Request) string {
		if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
			return "session:" + c.Value
		}
		return ClientIP(r)
	}
}
