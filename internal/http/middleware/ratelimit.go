package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// Rule allows at most Limit hits per Window for each key returned by Key.
// An empty key or a non-positive limit lets the request through.
type Rule struct {
	Key    func(*http.Request) string
	Limit  int
	Window time.Duration
	// Reject renders the refusal; nil writes a bare 429.
	Reject http.HandlerFunc
}

func (rule Rule) reject(w http.ResponseWriter, r *http.Request) {
	if rule.Reject == nil {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	rule.Reject(w, r)
}

func RateLimit(limiter Limiter, rule Rule) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil || rule.Limit <= 0 || rule.Key == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := rule.Key(r); key != "" && !limiter.Allow(key, rule.Limit, rule.Window) {
				rule.reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const sweepThreshold = 4096

// windowKey identifies one epoch-aligned window of one key, the same
// bucketing RedisLimiter uses.
type windowKey struct {
	key    string
	window time.Duration
	index  int64
}

// RateLimiter counts hits in process memory. It serves single-instance
// deployments and runs without Redis.
type RateLimiter struct {
	mu   sync.Mutex
	hits map[windowKey]int
	now  func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{hits: make(map[windowKey]int), now: time.Now}
}

func (r *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window < time.Millisecond {
		return true
	}
	nowMs := r.now().UnixMilli()
	wk := windowKey{key: key, window: window, index: nowMs / window.Milliseconds()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.hits) >= sweepThreshold {
		r.dropClosedWindows(nowMs)
	}
	if r.hits[wk] >= limit {
		return false
	}
	r.hits[wk]++
	return true
}

func (r *RateLimiter) dropClosedWindows(nowMs int64) {
	for wk := range r.hits {
		if wk.index < nowMs/wk.window.Milliseconds() {
			delete(r.hits, wk)
		}
	}
}

// ClientIP prefers the first X-Forwarded-For hop, set by the ingress proxy.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
