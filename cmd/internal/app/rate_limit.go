package app

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	defaultRateLimitEvents = 20
	defaultRateLimitWindow = 10 * time.Second
)

// ipRateLimiter is a sliding-window limiter keyed by client IP.
type ipRateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	visitors  map[string][]time.Time
	lastSweep time.Time
}

// newIPRateLimiter constructs an ipRateLimiter with safe defaults when
// inputs are invalid.
func newIPRateLimiter(limit int, window time.Duration) *ipRateLimiter {
	if limit <= 0 {
		limit = defaultRateLimitEvents
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return &ipRateLimiter{
		limit:    limit,
		window:   window,
		visitors: make(map[string][]time.Time),
	}
}

// Allow reports whether a request from ip at time "now" should be permitted.
// When denied, retryAfter says how long until the oldest tracked event
// leaves the window.
func (l *ipRateLimiter) Allow(ip string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		l.sweepLocked(now)
		l.lastSweep = now
	}

	cut := now.Add(-l.window)
	events := l.visitors[ip]
	dst := events[:0]
	for _, t := range events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	events = dst

	if len(events) >= l.limit {
		l.visitors[ip] = events
		return false, events[0].Add(l.window).Sub(now)
	}
	l.visitors[ip] = append(events, now)
	return true, 0
}

// sweepLocked drops idle visitors so the map does not grow without bound.
// Callers must hold mu.
func (l *ipRateLimiter) sweepLocked(now time.Time) {
	cut := now.Add(-l.window)
	for ip, events := range l.visitors {
		keep := events[:0]
		for _, t := range events {
			if t.After(cut) {
				keep = append(keep, t)
			}
		}
		if len(keep) == 0 {
			delete(l.visitors, ip)
			continue
		}
		l.visitors[ip] = keep
	}
}

// WithRateLimit rejects clients that exceed the per-IP request budget with
// 429 and a Retry-After hint.
func WithRateLimit(next http.Handler, limiter *ipRateLimiter, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		ok, retryAfter := limiter.Allow(ip, time.Now())
		if !ok {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			log.Warn("ratelimit.reject", "ip", ip, "path", r.URL.Path, "retry_after_s", secs)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the peer address without the ephemeral port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
