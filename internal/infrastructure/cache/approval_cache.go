package cache

import (
	"context"
	"sync"
	"time"

	"identity-hub/internal/domain"

	"golang.org/x/sync/singleflight"
)

// ResolveFunc produces the resolved identity, nil when signed out.
type ResolveFunc func(ctx context.Context) (*domain.Identity, error)

// ApprovalCache memoizes the resolver's output behind a single process-wide
// entry. Concurrent misses share one upstream resolution via singleflight.
// A nil (signed-out) result uses a separate, much shorter TTL so a
// just-completed sign-in becomes visible immediately.
type ApprovalCache struct {
	resolve ResolveFunc
	ttl     time.Duration
	nilTTL  time.Duration

	mu        sync.RWMutex
	identity  *domain.Identity
	fetchedAt time.Time
	populated bool

	group singleflight.Group
}

// NewApprovalCache creates a cache over resolve with the given TTL.
// Nil results are effectively uncached.
func NewApprovalCache(ttl time.Duration, resolve ResolveFunc) *ApprovalCache {
	return &ApprovalCache{
		resolve: resolve,
		ttl:     ttl,
		nilTTL:  0,
	}
}

// Resolve returns the cached identity while fresh, otherwise performs one
// shared upstream resolution and stores the outcome unconditionally.
func (c *ApprovalCache) Resolve(ctx context.Context) (*domain.Identity, error) {
	if identity, ok := c.fresh(); ok {
		return identity, nil
	}

	v, err, _ := c.group.Do("identity", func() (any, error) {
		// A caller that queued behind the flight may find a fresh entry
		// stored by an Invalidate-then-resolve race; re-check first.
		if identity, ok := c.fresh(); ok {
			return identity, nil
		}

		identity, err := c.resolve(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.identity = identity
		c.fetchedAt = time.Now()
		c.populated = true
		c.mu.Unlock()

		return identity, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return copyIdentity(v.(*domain.Identity)), nil
}

// Invalidate drops the cached entry. Called on sign-out so that any
// resolution completing afterwards observes the signed-out state.
func (c *ApprovalCache) Invalidate() {
	c.mu.Lock()
	c.identity = nil
	c.populated = false
	c.mu.Unlock()
}

func (c *ApprovalCache) fresh() (*domain.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.populated {
		return nil, false
	}

	ttl := c.ttl
	if c.identity == nil {
		ttl = c.nilTTL
	}
	if time.Since(c.fetchedAt) >= ttl {
		return nil, false
	}
	return copyIdentity(c.identity), true
}

func copyIdentity(identity *domain.Identity) *domain.Identity {
	if identity == nil {
		return nil
	}
	copied := *identity
	return &copied
}
