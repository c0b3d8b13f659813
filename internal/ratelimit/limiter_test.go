package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsUpToQuota(t *testing.T) {
	l := NewDefault()
	now := time.Now()

	for i := 0; i < DefaultMaxRequests; i++ {
		d := l.CheckAndReserve("user-1", now)
		require.Equal(t, Allow, d.Verdict, "request %d should be allowed", i+1)
		assert.Equal(t, DefaultMaxRequests-i-1, d.Remaining)
		now = now.Add(31 * time.Second)
	}

	d := l.CheckAndReserve("user-1", now)
	assert.Equal(t, DenyQuota, d.Verdict, "request beyond quota should be denied")
	assert.Positive(t, d.RetryAfter)
}

func TestLimiterCooldown(t *testing.T) {
	l := NewDefault()
	now := time.Now()

	require.Equal(t, Allow, l.CheckAndReserve("user-1", now).Verdict)

	d := l.CheckAndReserve("user-1", now.Add(1*time.Second))
	assert.Equal(t, DenyCooldown, d.Verdict)
	assert.Equal(t, 29*time.Second, d.RetryAfter)
}

func TestLimiterCooldownDoesNotConsumeQuota(t *testing.T) {
	l := NewDefault()
	now := time.Now()

	l.CheckAndReserve("user-1", now)
	l.CheckAndReserve("user-1", now.Add(1*time.Second))

	used, remaining, _ := l.Stats("user-1", now.Add(2*time.Second))
	assert.Equal(t, 1, used)
	assert.Equal(t, DefaultMaxRequests-1, remaining)
}

func TestLimiterWindowReset(t *testing.T) {
	l := NewDefault()
	now := time.Now()

	for i := 0; i < DefaultMaxRequests; i++ {
		require.Equal(t, Allow, l.CheckAndReserve("user-1", now).Verdict)
		now = now.Add(31 * time.Second)
	}
	require.Equal(t, DenyQuota, l.CheckAndReserve("user-1", now).Verdict)

	now = now.Add(DefaultWindow)
	d := l.CheckAndReserve("user-1", now)
	assert.Equal(t, Allow, d.Verdict, "should allow after the window elapses")

	used, _, _ := l.Stats("user-1", now)
	assert.Equal(t, 1, used, "usage should restart at 1 after the reset")
}

func TestLimiterQuotaRetryAfterPointsAtWindowEnd(t *testing.T) {
	l := New(1, 24*time.Hour, 0)
	start := time.Now()

	require.Equal(t, Allow, l.CheckAndReserve("user-1", start).Verdict)

	d := l.CheckAndReserve("user-1", start.Add(1*time.Hour))
	require.Equal(t, DenyQuota, d.Verdict)
	assert.Equal(t, 23*time.Hour, d.RetryAfter)
}

func TestLimiterIsolatesUsers(t *testing.T) {
	l := New(1, 24*time.Hour, 0)
	now := time.Now()

	require.Equal(t, Allow, l.CheckAndReserve("user-1", now).Verdict)
	assert.Equal(t, DenyQuota, l.CheckAndReserve("user-1", now).Verdict)
	assert.Equal(t, Allow, l.CheckAndReserve("user-2", now).Verdict, "different user should not be affected")
}

func TestLimiterStatsForUnknownUser(t *testing.T) {
	l := NewDefault()
	used, remaining, resetIn := l.Stats("nobody", time.Now())
	assert.Equal(t, 0, used)
	assert.Equal(t, DefaultMaxRequests, remaining)
	assert.Equal(t, DefaultWindow, resetIn)
}

func TestLimiterConcurrentAccess(t *testing.T) {
	l := New(5, 24*time.Hour, 0)
	now := time.Now()
	var wg sync.WaitGroup
	allowed := make([]int, 10)

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			for j := 0; j < 7; j++ {
				if l.CheckAndReserve(userID, now).Verdict == Allow {
					allowed[i]++
				}
			}
		}()
	}
	wg.Wait()

	for i, count := range allowed {
		assert.Equal(t, 5, count, "user-%d should have exactly 5 allowed requests", i)
	}
}
