package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// attemptLimiter counts failed passcode attempts per client within a sliding window.
type attemptLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newAttemptLimiter() *attemptLimiter {
	return &attemptLimiter{
		attempts: make(map[string][]time.Time),
	}
}

func (limiter *attemptLimiter) tooManyRecent(key string, now time.Time, limit int, window time.Duration) bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	pruned := limiter.pruneLocked(key, now, window)
	return len(pruned) >= limit
}

func (limiter *attemptLimiter) addFailure(key string, now time.Time, window time.Duration) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	pruned := limiter.pruneLocked(key, now, window)
	limiter.attempts[key] = append(pruned, now)
}

func (limiter *attemptLimiter) reset(key string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	delete(limiter.attempts, key)
}

func (limiter *attemptLimiter) pruneLocked(key string, now time.Time, window time.Duration) []time.Time {
	values := limiter.attempts[key]
	if len(values) == 0 {
		return []time.Time{}
	}

	threshold := now.Add(-window)
	pruned := make([]time.Time, 0, len(values))
	for _, value := range values {
		if value.After(threshold) {
			pruned = append(pruned, value)
		}
	}

	if len(pruned) == 0 {
		delete(limiter.attempts, key)
		return []time.Time{}
	}

	limiter.attempts[key] = pruned
	return pruned
}

// Each passcode gate keeps its own failure count, so a villager login cannot
// clear failures recorded against the admin passcode.
const (
	limiterScopeVillager = "villager"
	limiterScopeAdmin    = "admin"
)

func requestLimiterKey(c *fiber.Ctx, scope string) string {
	client := strings.TrimSpace(c.IP())
	if client == "" {
		client = "unknown"
	}
	return scope + "|" + client
}

func (handler *Handler) passcodeLocked(c *fiber.Ctx, scope string) bool {
	return handler.passcodeLimiter.tooManyRecent(requestLimiterKey(c, scope), handler.now(), passcodeAttemptLimit, passcodeAttemptWindow)
}

func (handler *Handler) recordPasscodeFailure(c *fiber.Ctx, scope string) {
	handler.passcodeLimiter.addFailure(requestLimiterKey(c, scope), handler.now(), passcodeAttemptWindow)
}

func (handler *Handler) clearPasscodeFailures(c *fiber.Ctx, scope string) {
	handler.passcodeLimiter.reset(requestLimiterKey(c, scope))
}

func (handler *Handler) tooManyAttempts(c *fiber.Ctx) error {
	c.Set(fiber.HeaderRetryAfter, "900")
	return handler.apiError(c, fiber.StatusTooManyRequests, "too_many_attempts", "error.too_many_attempts", nil)
}
