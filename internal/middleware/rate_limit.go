// internal/middleware/rate_limit.go
package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter starts a janitor that forgets idle visitors until ctx ends.
func NewRateLimiter(ctx context.Context, r rate.Limit, b int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
	}

	go rl.cleanupVisitors(ctx)

	return rl
}

func (rl *RateLimiter) cleanupVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mtx.Lock()
			for key, v := range rl.visitors {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(rl.visitors, key)
				}
			}
			rl.mtx.Unlock()
		}
	}
}

func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// Middleware limits per client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return rl.limit(func(c *gin.Context) string { return c.ClientIP() })
}

// PerUser limits per authenticated user, falling back to the client IP.
// Must run after AuthRequired.
func (rl *RateLimiter) PerUser() gin.HandlerFunc {
	return rl.limit(func(c *gin.Context) string {
		if userID, ok := utils.GetUserIDFromContext(c); ok {
			return fmt.Sprintf("user:%s", userID)
		}
		return c.ClientIP()
	})
}

func (rl *RateLimiter) limit(key func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getVisitor(key(c)).Allow() {
			utils.TooManyRequestsResponse(c)
			return
		}
		c.Next()
	}
}

// RateLimiters are the limiters the router installs.
type RateLimiters struct {
	General  *RateLimiter
	Auth     *RateLimiter
	Checkout *RateLimiter
}

func NewRateLimiters(ctx context.Context) RateLimiters {
	return RateLimiters{
		General:  NewRateLimiter(ctx, rate.Every(100*time.Millisecond), 20), // 10 requests per second
		Auth:     NewRateLimiter(ctx, rate.Every(12*time.Second), 5),        // 5 logins per minute
		Checkout: NewRateLimiter(ctx, rate.Every(6*time.Second), 3),         // 10 checkouts per minute
	}
}
