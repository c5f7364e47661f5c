package pipeline

import (
	"sync"

	"logoforge/internal/domain"
)

// collector is the append-only result sink shared by branch tasks. Once
// sealed, late results from abandoned tasks are dropped.
type collector struct {
	mu     sync.Mutex
	items  []domain.ArtifactResult
	seen   map[domain.ArtifactID]struct{}
	sealed bool
}

func newCollector() *collector {
	return &collector{seen: make(map[domain.ArtifactID]struct{})}
}

// add records a result. It reports false when the collector is sealed or the
// artifact was already recorded.
func (c *collector) add(res domain.ArtifactResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return false
	}
	if _, dup := c.seen[res.ID]; dup {
		return false
	}
	c.seen[res.ID] = struct{}{}
	c.items = append(c.items, res)
	return true
}

// seal stops accepting results and returns what was collected.
func (c *collector) seal() []domain.ArtifactResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	return append([]domain.ArtifactResult(nil), c.items...)
}
