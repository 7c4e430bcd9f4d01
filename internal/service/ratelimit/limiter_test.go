package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 2, WithClock(func() time.Time { return now }))

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"), "keys have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestLimiter_EvictIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(10, 10, WithClock(func() time.Time { return now }), WithIdleTTL(time.Minute))

	l.Allow("old")
	now = now.Add(45 * time.Second)
	l.Allow("fresh")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, l.EvictIdle())
	assert.Equal(t, 1, l.Len())
}
