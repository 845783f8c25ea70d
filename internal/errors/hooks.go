package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook is called for every error built while at least one hook is registered.
// Hooks run synchronously on the building goroutine and must not block.
type ErrorHook func(ee *EnhancedError)

var (
	hooksMu sync.RWMutex
	hooks   []ErrorHook

	// hasActiveReporting gates the slow path in Build
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook that receives every built error
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	defer hooksMu.Unlock()
	hooks = append(hooks, hook)
	hasActiveReporting.Store(true)
}

// ClearErrorHooks removes all registered hooks
func ClearErrorHooks() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	hooks = nil
	hasActiveReporting.Store(false)
}

func runHooks(ee *EnhancedError) {
	if ee.markReported() {
		return
	}

	hooksMu.RLock()
	current := hooks
	hooksMu.RUnlock()

	for _, hook := range current {
		hook(ee)
	}
}
