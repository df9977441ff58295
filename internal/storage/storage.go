package storage

import (
	"sync"

	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
)

// RunCache keeps fully loaded runs in memory, keyed by run id
type RunCache struct {
	runs map[int64]*evaluation.Results
	mu   sync.RWMutex
}

func NewRunCache() *RunCache {
	return &RunCache{
		runs: make(map[int64]*evaluation.Results),
	}
}

func (c *RunCache) Get(id int64) (*evaluation.Results, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	run, exists := c.runs[id]
	return run, exists
}

func (c *RunCache) Set(id int64, run *evaluation.Results) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[id] = run
}
