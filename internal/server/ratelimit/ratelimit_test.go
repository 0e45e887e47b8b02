package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ingestionConfig mirrors the production shape: project creation and the
// per-project ingestion subroutes get tight budgets, everything else rides
// on the default.
func ingestionConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{},
		Blacklist:     map[string]bool{},
		EndpointConfigs: []EndpointConfig{
			{Path: "/projects", Method: "POST", Limit: 3, Window: time.Hour, Burst: 3},
			{Path: "/projects/", Method: "POST", Limit: 5, Window: time.Hour, Burst: 5},
		},
	}
}

func TestBucket_TakeAndRefill(t *testing.T) {
	b := newBucket(2, 10.0) // 2 burst, 10 tokens per second
	now := time.Now()

	allowed, remaining, _ := b.take(now)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)

	allowed, remaining, _ = b.take(now)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, _, reset := b.take(now)
	assert.False(t, allowed)
	assert.True(t, reset.After(now))

	// 200ms at 10 tokens/s refills two tokens.
	allowed, _, _ = b.take(now.Add(200 * time.Millisecond))
	assert.True(t, allowed)
}

func TestBucket_RefillNeverExceedsCapacity(t *testing.T) {
	b := newBucket(2, 10.0)
	now := time.Now()

	_, remaining, _ := b.take(now.Add(time.Hour))
	assert.Equal(t, 1, remaining)
}

func TestLimiter_EnforcesProjectCreationBudget(t *testing.T) {
	l := NewLimiter(ingestionConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/projects", "POST")
		require.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, info := l.Allow("10.0.0.1", "/projects", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 3, info.Limit)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
}

func TestLimiter_BudgetsAreScopedPerClient(t *testing.T) {
	l := NewLimiter(ingestionConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow("10.0.0.1", "/projects", "POST")
	}

	allowed, _ := l.Allow("10.0.0.2", "/projects", "POST")
	assert.True(t, allowed, "exhausting one client's budget must not affect another")
}

func TestLimiter_PrefixMatchesIngestionSubroutes(t *testing.T) {
	l := NewLimiter(ingestionConfig())
	defer l.Stop()

	path := "/projects/3f1f9a6e-93b5-4472-a6a4-3f4a5d2c9e01/files"
	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.1", path, "POST")
		require.True(t, allowed)
		require.Equal(t, 5, info.Limit)
	}

	allowed, _ := l.Allow("10.0.0.1", path, "POST")
	assert.False(t, allowed)
}

func TestLimiter_UnmatchedRoutesUseDefault(t *testing.T) {
	l := NewLimiter(ingestionConfig())
	defer l.Stop()

	allowed, info := l.Allow("10.0.0.1", "/projects", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
}

func TestLimiter_HealthIsUnlimited(t *testing.T) {
	cfg := ingestionConfig()
	cfg.DefaultLimit = 1
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 50; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_Whitelist(t *testing.T) {
	cfg := ingestionConfig()
	cfg.Whitelist["10.0.0.9"] = true
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("10.0.0.9", "/projects", "POST")
		require.True(t, allowed)
	}
}

func TestLimiter_Blacklist(t *testing.T) {
	cfg := ingestionConfig()
	cfg.Blacklist["10.0.0.66"] = true
	l := NewLimiter(cfg)
	defer l.Stop()

	allowed, info := l.Allow("10.0.0.66", "/health", "GET")
	assert.False(t, allowed)
	assert.False(t, info.Allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	cfg := ingestionConfig()
	cfg.Enabled = false
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/projects", "POST")
		require.True(t, allowed)
	}
}

func TestLimiter_ConcurrentClients(t *testing.T) {
	l := NewLimiter(ingestionConfig())
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, _ := l.Allow("10.0.0.1", "/projects", "POST")
			if allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, allowedCount)
}

func TestLimiter_DropIdleBuckets(t *testing.T) {
	l := NewLimiter(ingestionConfig())
	defer l.Stop()

	for i := 0; i < 4; i++ {
		l.Allow(fmt.Sprintf("10.0.0.%d", i), "/projects", "POST")
	}

	l.mu.Lock()
	created := len(l.buckets)
	l.mu.Unlock()
	require.Equal(t, 4, created)

	// A cutoff in the future treats every bucket as idle.
	l.dropIdleBuckets(time.Now().Add(time.Minute))

	l.mu.Lock()
	left := len(l.buckets)
	l.mu.Unlock()
	assert.Zero(t, left)
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()

	allowed, _ := l.Allow("10.0.0.1", "/projects", "GET")
	assert.True(t, allowed)
}
