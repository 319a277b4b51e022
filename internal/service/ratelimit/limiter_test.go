package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBucket(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 0.5)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("kp"))
	assert.True(t, l.Allow("kp"))
	assert.False(t, l.Allow("kp"))
	assert.True(t, l.Allow("bt"), "keys have separate buckets")
	assert.Equal(t, 2*time.Second, l.RetryAfter("kp"))

	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow("kp"))
	assert.False(t, l.Allow("kp"))

	now = now.Add(time.Hour)
	assert.True(t, l.Allow("kp"))
	assert.True(t, l.Allow("kp"))
	assert.False(t, l.Allow("kp"), "refill caps at capacity")
}
