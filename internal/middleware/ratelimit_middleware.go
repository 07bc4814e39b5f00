package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// Default budget for invalid authentication attempts per IP.
const (
	defaultInvalidAuthLimit  = 5
	defaultInvalidAuthWindow = time.Minute
)

// InvalidAuthRateLimiter throttles invalid auth attempts only.
type InvalidAuthRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptInfo
	limit    int
	window   time.Duration
	now      func() time.Time
}

type attemptInfo struct {
	count   int
	firstAt time.Time
}

// NewInvalidAuthRateLimiter allows 5 invalid attempts per IP per minute.
func NewInvalidAuthRateLimiter() *InvalidAuthRateLimiter {
	rl := newInvalidAuthRateLimiter(defaultInvalidAuthLimit, defaultInvalidAuthWindow, time.Now)
	go rl.cleanup()
	return rl
}

func newInvalidAuthRateLimiter(limit int, window time.Duration, now func() time.Time) *InvalidAuthRateLimiter {
	return &InvalidAuthRateLimiter{
		attempts: make(map[string]*attemptInfo),
		limit:    limit,
		window:   window,
		now:      now,
	}
}

// Allow checks if ip can make another attempt.
func (r *InvalidAuthRateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	info, exists := r.attempts[ip]
	if !exists || now.Sub(info.firstAt) > r.window {
		r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
		return true
	}

	if info.count >= r.limit {
		return false
	}
	info.count++
	return true
}

func (r *InvalidAuthRateLimiter) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for ip, info := range r.attempts {
		if now.Sub(info.firstAt) > r.window {
			delete(r.attempts, ip)
		}
	}
}

func (r *InvalidAuthRateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		r.sweep()
	}
}

// CheckoutRateLimiter bounds unauthenticated checkout submissions per IP.
type CheckoutRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewCheckoutRateLimiter allows perMinute submissions per IP with the given burst.
// A non-positive perMinute disables the limit.
func NewCheckoutRateLimiter(perMinute, burst int) *CheckoutRateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst < 1 {
		burst = 1
	}
	return &CheckoutRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     limit,
		burst:    burst,
	}
}

func (r *CheckoutRateLimiter) limiter(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[ip]; ok {
		return l
	}
	l := rate.NewLimiter(r.rate, r.burst)
	r.limiters[ip] = l
	return l
}

// Handle rejects a submission with 429 once the IP has spent its budget.
func (r *CheckoutRateLimiter) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.limiter(c.ClientIP()).Allow() {
			utils.Error(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many payment attempts, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
