package token

import (
	"context"
	"sync"
	"time"
)

// UsedTokens is the ledger that makes tokens single-use. MarkUsed must be atomic: when several
// callers race on the same jti exactly one of them observes first == true.
type UsedTokens interface {
	MarkUsed(ctx context.Context, jti string, exp time.Time) (first bool, err error)

	// Release forgets a jti so the token can be redeemed again
	Release(ctx context.Context, jti string) error
}

// InMemoryUsedTokens is a simple in-memory implementation
type InMemoryUsedTokens struct {
	used    map[string]time.Time
	mu      sync.Mutex
	nowFunc func() time.Time
}

var _ UsedTokens = (*InMemoryUsedTokens)(nil)

func NewInMemoryUsedTokens() *InMemoryUsedTokens {
	return &InMemoryUsedTokens{
		used:    make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

func (c *InMemoryUsedTokens) MarkUsed(_ context.Context, jti string, exp time.Time) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.used[jti]; exists {
		return false, nil
	}
	c.used[jti] = exp
	return true, nil
}

func (c *InMemoryUsedTokens) Release(_ context.Context, jti string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.used, jti)
	return nil
}

// Cleanup removes entries whose tokens have expired anyway
func (c *InMemoryUsedTokens) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	for jti, exp := range c.used {
		if now.After(exp) {
			delete(c.used, jti)
		}
	}
}

func (c *InMemoryUsedTokens) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.used)
}

// RunCleanup calls Cleanup every interval until ctx is done
func (c *InMemoryUsedTokens) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}
