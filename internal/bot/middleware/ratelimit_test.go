package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.Equal(t, Allowed, rl.Allow(1))
	assert.Equal(t, Allowed, rl.Allow(1))
	assert.Equal(t, Throttled, rl.Allow(1))
	assert.Equal(t, Dropped, rl.Allow(1))
	// другой subject считается отдельно
	assert.Equal(t, Allowed, rl.Allow(2))

	now = now.Add(time.Minute + time.Second)
	assert.Equal(t, Allowed, rl.Allow(1))
	assert.Equal(t, Allowed, rl.Allow(1))
	// после нового окна снова одно предупреждение
	assert.Equal(t, Throttled, rl.Allow(1))
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow(1)
	rl.Allow(2)
	now = now.Add(30 * time.Second)
	rl.Allow(2)
	assert.Equal(t, 2, rl.Tracked())

	now = now.Add(45 * time.Second)
	rl.cleanup()
	assert.Equal(t, 1, rl.Tracked())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Баланс", truncate("Баланс", 10))
	assert.Equal(t, "Бал...", truncate("Баланс", 3))
}
