package diagnostics

import (
	"maps"
	"sync"

	"github.com/tphakala/pendant-go/internal/errors"
)

// ErrorCounter tallies built errors by category. Register it with
// errors.AddErrorHook(counter.Hook()).
type ErrorCounter struct {
	mu     sync.Mutex
	counts map[string]uint64
}

// NewErrorCounter returns an empty counter
func NewErrorCounter() *ErrorCounter {
	return &ErrorCounter{counts: make(map[string]uint64)}
}

// Hook returns the error hook feeding this counter
func (c *ErrorCounter) Hook() errors.ErrorHook {
	return func(ee *errors.EnhancedError) {
		c.Add(ee.GetCategory())
	}
}

// Add counts one error of category
func (c *ErrorCounter) Add(category string) {
	c.mu.Lock()
	c.counts[category]++
	c.mu.Unlock()
}

// Counts returns a copy of the per-category totals
func (c *ErrorCounter) Counts() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.counts)
}
