package cache

import (
	"sync"
	"sync/atomic"
)

// GrowthCache is the process-wide pool of product ids seen by the recommendation
// service. It only ever grows: every Grow appends the fresh ids and then a copy
// of the first quarter of the result, and nothing is ever evicted.
//
// The cache counts as primed from the first fetch attempt on, whether or not
// that fetch succeeded. Grow is serialized, Snapshot is not. A reader gets whichever pool was last
// published, so concurrent misses may each grow the pool on top of one another.
type GrowthCache struct {
	growMu sync.Mutex
	ids    atomic.Pointer[[]string]
	primed atomic.Bool
}

func NewGrowthCache() *GrowthCache {
	c := &GrowthCache{}
	empty := make([]string, 0)
	c.ids.Store(&empty)
	return c
}

func (c *GrowthCache) IsPrimed() bool {
	return c.primed.Load()
}

func (c *GrowthCache) MarkPrimed() {
	c.primed.Store(true)
}

func (c *GrowthCache) Grow(freshIds []string) {
	c.growMu.Lock()
	defer c.growMu.Unlock()

	current := *c.ids.Load()
	grown := make([]string, 0, len(current)+len(freshIds))
	grown = append(grown, current...)
	grown = append(grown, freshIds...)
	grown = append(grown, grown[:len(grown)/4]...)

	c.ids.Store(&grown)
}

// Snapshot returns the current pool. Callers must not modify it.
func (c *GrowthCache) Snapshot() []string {
	return *c.ids.Load()
}

func (c *GrowthCache) Len() int {
	return len(*c.ids.Load())
}
