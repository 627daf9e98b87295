package engine

import (
	"context"
	"sync"
)

// =============================================================================
// CACHE - Scoped award/points cache
// =============================================================================

// Cache is an explicitly scoped snapshot of award records per affiliate.
// It replaces the ad hoc process-global status/points cache the dashboard
// previously relied on: it is owned by whoever constructs it, loads on
// demand, and is invalidated whenever the owning affiliate's awards change.
// Reads never observe a partially loaded entry.
type Cache struct {
	mu     sync.RWMutex
	ledger AwardLedger
	awards map[AffiliateID][]AwardRecord
}

// NewCache creates a cache over the given ledger.
func NewCache(ledger AwardLedger) *Cache {
	return &Cache{ledger: ledger, awards: make(map[AffiliateID][]AwardRecord)}
}

// Awards returns the affiliate's current award records, loading from the
// ledger on first access.
func (c *Cache) Awards(ctx context.Context, id AffiliateID) ([]AwardRecord, error) {
	c.mu.RLock()
	cached, ok := c.awards[id]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	loaded, err := c.ledger.Awards(ctx, id)
	if err != nil {
		return nil, NewReadError("awards", id, err)
	}

	c.mu.Lock()
	c.awards[id] = loaded
	c.mu.Unlock()
	return loaded, nil
}

// TotalPoints returns the affiliate's point total from the cached awards.
func (c *Cache) TotalPoints(ctx context.Context, id AffiliateID) (int, error) {
	awards, err := c.Awards(ctx, id)
	if err != nil {
		return 0, err
	}
	return TotalPoints(awards), nil
}

// Invalidate drops the cached awards for one affiliate. Called on every
// AwardsChanged; the next read reloads from the ledger.
func (c *Cache) Invalidate(id AffiliateID) {
	c.mu.Lock()
	delete(c.awards, id)
	c.mu.Unlock()
}
