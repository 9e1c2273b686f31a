package agent

import "sync"

// InitGuard is the one-shot installation latch for a page lifetime. The first
// TryAcquire wins; reinstallation is only possible after a Reset, which the
// SPA navigation watcher issues when it detects the active flag was lost.
type InitGuard struct {
	mu        sync.Mutex
	installed bool
}

// TryAcquire claims the guard. It returns false if the agent is already
// installed on this page.
func (g *InitGuard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.installed {
		return false
	}
	g.installed = true
	return true
}

// Reset releases the guard so a fresh agent can install after an SPA
// navigation tore the previous one down.
func (g *InitGuard) Reset() {
	g.mu.Lock()
	g.installed = false
	g.mu.Unlock()
}

// Installed reports whether the guard is currently held.
func (g *InitGuard) Installed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.installed
}
