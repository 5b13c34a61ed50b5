package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store counts requests per key inside fixed windows.
type Store interface {
	// Increment records one hit for key and returns the hit count inside
	// the current window together with the time the window resets.
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)

	// Decrement gives one hit back to key's current window, if any.
	Decrement(ctx context.Context, key string) error
}

// windowEntry is a single fixed-window counter.
type windowEntry struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a process-local Store.
// Counters are guarded by one mutex and expired windows are swept periodically.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates an in-memory store that sweeps expired windows every
// cleanupInterval. A zero interval disables the background sweep.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}

	return s
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = &windowEntry{resetAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++

	return entry.count, entry.resetAt, nil
}

// Decrement implements Store.
func (s *MemoryStore) Decrement(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.resetAt) {
		return nil
	}
	if entry.count > 0 {
		entry.count--
	}
	return nil
}

// Stop ends the background sweep. Safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if !now.Before(entry.resetAt) {
			delete(s.entries, key)
		}
	}
}

// incrementScript bumps the counter and starts the window on the first hit.
// Returns {count, ttl_ms}.
var incrementScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// decrementScript only touches live windows so a late decrement cannot
// create a key without an expiry.
var decrementScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	local current = redis.call("DECR", KEYS[1])
	if current < 0 then
		redis.call("SET", KEYS[1], 0, "KEEPTTL")
	end
end
return 0
`)

// RedisStore shares counters between instances through Redis.
// When Redis is unreachable it falls back to an in-memory store, so the
// limiter keeps working per instance instead of rejecting traffic.
type RedisStore struct {
	client   redis.Scripter
	fallback *MemoryStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewRedisStore creates a Redis-backed store. fallback must not be nil.
func NewRedisStore(client redis.Scripter, fallback *MemoryStore, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client:   client,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		s.logger.Warn("rate limit store unavailable, using in-memory counters",
			"key", key,
			"error", err,
		)
		return s.fallback.Increment(ctx, key, window)
	}

	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return int(res[0]), s.now().Add(ttl), nil
}

// Decrement implements Store.
func (s *RedisStore) Decrement(ctx context.Context, key string) error {
	if err := decrementScript.Run(ctx, s.client, []string{key}).Err(); err != nil {
		s.logger.Warn("rate limit store unavailable, using in-memory counters",
			"key", key,
			"error", err,
		)
		return s.fallback.Decrement(ctx, key)
	}
	return nil
}

// RateLimitConfig configures a fixed-window limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per client inside one window.
	Max int

	// Window is the length of the fixed window.
	Window time.Duration

	// KeyPrefix separates the counters of different limiters sharing a store.
	KeyPrefix string

	// SkipFailedRequests gives the slot back when the response status is >= 400.
	SkipFailedRequests bool

	// Store holds the counters. Defaults to a fresh MemoryStore.
	Store Store

	// KeyFunc extracts the client key. Defaults to GetClientIP.
	KeyFunc func(r *http.Request) string

	// OnLimit is called for every rejected request.
	OnLimit func(r *http.Request)
}

// Fixed limits for the public API.
const (
	SubmissionRateLimit  = 5
	SubmissionRateWindow = 15 * time.Minute
	APIRateLimit         = 30
	APIRateWindow        = time.Minute
)

// SubmissionRateLimitConfig is the limiter for contact and newsletter submissions.
func SubmissionRateLimitConfig(store Store) RateLimitConfig {
	return RateLimitConfig{
		Max:                SubmissionRateLimit,
		Window:             SubmissionRateWindow,
		KeyPrefix:          "ratelimit:submit:",
		SkipFailedRequests: true,
		Store:              store,
	}
}

// APIRateLimitConfig is the general limiter applied to every /api route.
func APIRateLimitConfig(store Store) RateLimitConfig {
	return RateLimitConfig{
		Max:       APIRateLimit,
		Window:    APIRateWindow,
		KeyPrefix: "ratelimit:api:",
		Store:     store,
	}
}

// RateLimit returns middleware that rejects clients exceeding cfg.Max
// requests per cfg.Window with 429 Too Many Requests.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore(cfg.Window)
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = GetClientIP
	}
	message := RetryMessage(cfg.Window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.KeyPrefix + cfg.KeyFunc(r)

			count, resetAt, err := cfg.Store.Increment(r.Context(), key, cfg.Window)
			if err != nil {
				// Counting failed; let the request through.
				GetLogger(r.Context()).Warn("rate limit check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := cfg.Max - count
			if remaining < 0 {
				remaining = 0
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC3339))

			if count > cfg.Max {
				retryAfter := int(time.Until(resetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))

				if cfg.OnLimit != nil {
					cfg.OnLimit(r)
				}
				GetLogger(r.Context()).Warn("rate limit exceeded",
					"client_ip", GetClientIP(r),
					"limit", cfg.Max,
				)

				respondRateLimited(w, message)
				return
			}

			if !cfg.SkipFailedRequests {
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			if sw.status >= http.StatusBadRequest {
				if err := cfg.Store.Decrement(context.WithoutCancel(r.Context()), key); err != nil {
					GetLogger(r.Context()).Warn("rate limit refund failed", "error", err)
				}
			}
		})
	}
}

// RetryMessage builds the fixed 429 message for a window,
// e.g. "too many requests, retry after 15 minutes".
func RetryMessage(window time.Duration) string {
	var n int
	var unit string
	switch {
	case window >= time.Hour && window%time.Hour == 0:
		n, unit = int(window/time.Hour), "hour"
	case window >= time.Minute:
		n, unit = int(window/time.Minute), "minute"
	default:
		n, unit = int(window/time.Second), "second"
	}
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("too many requests, retry after %d %s", n, unit)
}

func respondRateLimited(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// statusWriter records the status code written by the next handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
