package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an idle client's limiter is remembered.
const limiterIdleTTL = 10 * time.Minute

// ClientLimiters hands out one token bucket per client key. Buckets for
// clients that go quiet are forgotten after limiterIdleTTL.
type ClientLimiters struct {
	mu       sync.Mutex
	limiters *cache.Cache
	r        rate.Limit
	b        int
}

// NewClientLimiters creates limiters allowing r events per second with burst b.
func NewClientLimiters(r rate.Limit, b int) *ClientLimiters {
	return &ClientLimiters{
		limiters: cache.New(limiterIdleTTL, limiterIdleTTL),
		r:        r,
		b:        b,
	}
}

// Get returns the limiter for key, creating it on first use.
func (l *ClientLimiters) Get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, found := l.limiters.Get(key); found {
		l.limiters.Set(key, v, cache.DefaultExpiration)
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.limiters.Set(key, limiter, cache.DefaultExpiration)
	return limiter
}

// RateLimiter rejects requests with 429 once a client IP exceeds r/b.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiters := NewClientLimiters(r, b)
	return func(c *gin.Context) {
		if !limiters.Get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
