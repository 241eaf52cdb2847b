package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/elms-api/utils/cache"
	"github.com/sahilchouksey/elms-api/utils/response"
)

const failedLoginWindow = 15 * time.Minute

// BruteForceProtection locks an IP out of login after repeated failures
type BruteForceProtection struct {
	redisCache *cache.RedisCache
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(redisCache *cache.RedisCache) *BruteForceProtection {
	return &BruteForceProtection{
		redisCache: redisCache,
	}
}

func attemptKey(ip string) string { return "brute_force:attempts:" + ip }
func lockKey(ip string) string    { return "brute_force:lock:" + ip }

// LockoutFor maps the number of failures inside the window to a lockout duration
func LockoutFor(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	default:
		return 0
	}
}

// CheckLockout rejects requests from a locked IP with 429
func (b *BruteForceProtection) CheckLockout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		ip := c.IP()

		locked, err := b.redisCache.Exists(ctx, lockKey(ip))
		if err != nil {
			// Redis being down must not block logins
			log.Warnf("brute force check skipped for %s: %v", ip, err)
			return c.Next()
		}
		if !locked {
			return c.Next()
		}

		ttl, _ := b.redisCache.TTL(ctx, lockKey(ip))
		retryAfter := int(ttl.Seconds())
		if retryAfter <= 0 {
			retryAfter = 60
		}

		c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", retryAfter))
		return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
	}
}

// RecordFailedAttempt counts a failure and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(ctx context.Context, ip string) {
	attempts, err := b.redisCache.IncrementWithExpiry(ctx, attemptKey(ip), failedLoginWindow)
	if err != nil {
		return
	}

	if d := LockoutFor(attempts); d > 0 {
		if err := b.redisCache.Set(ctx, lockKey(ip), "locked", d); err != nil {
			log.Warnf("failed to lock %s: %v", ip, err)
		}
	}
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(ctx context.Context, ip string) {
	b.redisCache.Delete(ctx, attemptKey(ip), lockKey(ip))
}
