package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"socialmaps/internal/httputil"
	"socialmaps/internal/logger"
)

const (
	defaultCleanupInterval = 5 * time.Minute
	limiterIdleTTL         = 10 * time.Minute
)

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per authenticated user. It must run after AuthMiddleware.
type RateLimiter struct {
	rate  rate.Limit
	burst int
	name  string
	log   *zap.Logger

	mu       sync.Mutex
	limiters map[string]*userLimiter

	stopCh chan struct{}
	once   sync.Once
}

// NewPerMinuteLimiter allows perMinute requests per user per minute with an equal burst.
func NewPerMinuteLimiter(name string, perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	rl := &RateLimiter{
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		name:     name,
		log:      logger.Named("ratelimit"),
		limiters: make(map[string]*userLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop(defaultCleanupInterval)
	return rl
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "Missing authentication token")
			return
		}

		if !rl.limiterFor(userID).Allow() {
			retryAfter := int(math.Ceil(1 / float64(rl.rate)))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteTooManyRequests(w, "Too many requests, try again later")
			rl.log.Warn("rate limit exceeded", zap.String("user_id", userID), zap.String("limit", rl.name))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(userID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[userID] = ul
	}
	ul.lastAccess = time.Now()
	return ul.limiter
}

// Len returns the number of tracked users.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-limiterIdleTTL))
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops limiters untouched since cutoff.
func (rl *RateLimiter) cleanup(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for id, ul := range rl.limiters {
		if ul.lastAccess.Before(cutoff) {
			delete(rl.limiters, id)
		}
	}
}
