// Package ratelimit throttles availability-search requests per client IP.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	// Cooldown is the minimum time between searches from one IP.
	Cooldown time.Duration
	// MaxPerHour caps searches per IP per hour.
	MaxPerHour int

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		Cooldown:   time.Second,
		MaxPerHour: 120,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// entry tracks request counts and timestamps.
type entry struct {
	count   int
	firstAt time.Time // First request in window
	lastAt  time.Time // Most recent request (for cooldown)
}

// Limiter implements per-IP limiting for the search endpoint. Stale entries
// are pruned on record, so no background goroutine is needed.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.Mutex
	byIP   map[string]*entry
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{
		config: cfg,
		clock:  clock,
		byIP:   make(map[string]*entry),
	}
}

// Check reports whether a search from ip is allowed. Does NOT record the
// request; call Record once the search is actually served.
func (l *Limiter) Check(ip string) LimitResult {
	now := l.clock.Now()
	key := hashKey(ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.byIP[key]
	if e == nil {
		return LimitResult{Allowed: true}
	}

	if elapsed := now.Sub(e.lastAt); elapsed < l.config.Cooldown {
		return LimitResult{
			Allowed:    false,
			RetryAfter: l.config.Cooldown - elapsed,
			Reason:     "cooldown",
		}
	}
	if now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxPerHour {
		return LimitResult{
			Allowed:    false,
			RetryAfter: time.Hour - now.Sub(e.firstAt),
			Reason:     "hourly_limit",
		}
	}
	return LimitResult{Allowed: true}
}

// Record records a served search from ip.
func (l *Limiter) Record(ip string) {
	now := l.clock.Now()
	key := hashKey(ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	e := l.byIP[key]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.byIP[key] = &entry{count: 1, firstAt: now, lastAt: now}
		return
	}
	e.count++
	e.lastAt = now
}

func (l *Limiter) prune(now time.Time) {
	for key, e := range l.byIP {
		if now.Sub(e.lastAt) >= time.Hour {
			delete(l.byIP, key)
		}
	}
}

// Middleware wraps a handler with the limiter, answering 429 when a client
// exceeds its budget.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		result := l.Check(ip)
		if !result.Allowed {
			log.Ctx(r.Context()).Warn().
				Str("reason", result.Reason).
				Dur("retry_after", result.RetryAfter).
				Msg("Search rate limited")
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		l.Record(ip)
		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the client address, honoring X-Forwarded-For from a
// fronting proxy.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
