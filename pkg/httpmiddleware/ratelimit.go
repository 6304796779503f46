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

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per key.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (Decision, error)
}

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	// Key extracts the rate limit key. Defaults to StoreClientKey.
	Key func(*http.Request) string
	// Skip exempts requests, such as health probes, from limiting.
	Skip func(*http.Request) bool
}

// RateLimit rejects requests over the limiter's quota with 429 and sets the
// X-RateLimit-* headers on every limited response. Limiter errors let the
// request through.
func RateLimit(l Limiter, cfg RateLimitConfig) Middleware {
	if cfg.Key == nil {
		cfg.Key = StoreClientKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			d, err := l.Allow(r.Context(), cfg.Key(r), now)
			if err != nil {
				zctx.From(r.Context()).Warn("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				wait := max(d.ResetAt.Sub(now), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeProblem(w, http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SkipPaths exempts the given exact paths.
func SkipPaths(paths ...string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		for _, p := range paths {
			if r.URL.Path == p {
				return true
			}
		}
		return false
	}
}

// StoreClientKey limits each client separately in every store, so a busy
// storefront does not exhaust the quota of its neighbours behind the same
// proxy.
func StoreClientKey(r *http.Request) string {
	return storeSegment(r.URL.Path) + "|" + ClientIP(r)
}

// storeSegment returns the {storeID} of /api/stores/{storeID}/..., or "".
func storeSegment(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/stores/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SlidingWindow is an in-process Limiter that approximates a sliding
// window by weighting the previous fixed window by its overlap.
type SlidingWindow struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*windowPair
}

type windowPair struct {
	prev      float64
	curr      float64
	currStart time.Time
}

var _ Limiter = (*SlidingWindow)(nil)

// NewSlidingWindow allows max requests per window and key.
func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		max:     max,
		window:  window,
		windows: make(map[string]*windowPair),
	}
}

// Allow counts a request of key at now.
func (s *SlidingWindow) Allow(_ context.Context, key string, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := now.Truncate(s.window)
	wp, ok := s.windows[key]
	switch {
	case !ok:
		wp = &windowPair{currStart: start}
		s.windows[key] = wp
	case start.Sub(wp.currStart) >= 2*s.window:
		*wp = windowPair{currStart: start}
	case start.After(wp.currStart):
		*wp = windowPair{prev: wp.curr, currStart: start}
	}

	overlap := 1 - float64(now.Sub(wp.currStart))/float64(s.window)
	count := wp.prev*max(overlap, 0) + wp.curr
	d := Decision{Limit: s.max, ResetAt: wp.currStart.Add(s.window)}
	if count >= float64(s.max) {
		return d, nil
	}

	wp.curr++
	d.Allowed = true
	d.Remaining = max(int(float64(s.max)-count-1), 0)
	return d, nil
}

// StartCleanup evicts idle keys every two windows until ctx is done.
func (s *SlidingWindow) StartCleanup(ctx context.Context) {
	go func() {
		t := time.NewTicker(2 * s.window)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.evict(now)
			}
		}
	}()
}

func (s *SlidingWindow) evict(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, wp := range s.windows {
		if now.Sub(wp.currStart) >= 2*s.window {
			delete(s.windows, key)
		}
	}
}
