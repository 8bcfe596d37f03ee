// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about workflow phases, monitor ticks,
// corrections, removals, cache operations, and API requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so the engine packages
// stay free of any metrics framework.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetMonitorHooks(&myMonitorHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Workflow().OnPhaseStart(ctx, "position", len(objects))
//	// ... place objects ...
//	observability.Workflow().OnPhaseComplete(ctx, "position", time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Workflow Hooks
// =============================================================================

// WorkflowHooks receives events from the layout workflow.
type WorkflowHooks interface {
	OnPhaseStart(ctx context.Context, phase string, objects int)
	OnPhaseComplete(ctx context.Context, phase string, duration time.Duration, err error)
}

// =============================================================================
// Monitor Hooks
// =============================================================================

// MonitorHooks receives events from the overlap monitor and its scheduler.
type MonitorHooks interface {
	// OnTick records one monitor pass over a snapshot.
	OnTick(ctx context.Context, objects, overlaps int, duration time.Duration, err error)

	// OnOverlap records a newly emitted overlap event.
	OnOverlap(ctx context.Context, severity, action string)

	// OnCorrection records a correction task reaching a final status.
	OnCorrection(ctx context.Context, action, status string, duration time.Duration)
}

// =============================================================================
// Removal Hooks
// =============================================================================

// RemovalHooks receives events from the fade-out coordinator.
type RemovalHooks interface {
	OnRemoval(ctx context.Context, total, succeeded, escalated int, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// API Hooks
// =============================================================================

// APIHooks receives events from the HTTP API server.
type APIHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopWorkflowHooks is a no-op implementation of WorkflowHooks.
type NoopWorkflowHooks struct{}

func (NoopWorkflowHooks) OnPhaseStart(context.Context, string, int)                     {}
func (NoopWorkflowHooks) OnPhaseComplete(context.Context, string, time.Duration, error) {}

// NoopMonitorHooks is a no-op implementation of MonitorHooks.
type NoopMonitorHooks struct{}

func (NoopMonitorHooks) OnTick(context.Context, int, int, time.Duration, error)      {}
func (NoopMonitorHooks) OnOverlap(context.Context, string, string)                   {}
func (NoopMonitorHooks) OnCorrection(context.Context, string, string, time.Duration) {}

// NoopRemovalHooks is a no-op implementation of RemovalHooks.
type NoopRemovalHooks struct{}

func (NoopRemovalHooks) OnRemoval(context.Context, int, int, int, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopAPIHooks is a no-op implementation of APIHooks.
type NoopAPIHooks struct{}

func (NoopAPIHooks) OnRequest(context.Context, string, string)                      {}
func (NoopAPIHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	workflowHooks WorkflowHooks = NoopWorkflowHooks{}
	monitorHooks  MonitorHooks  = NoopMonitorHooks{}
	removalHooks  RemovalHooks  = NoopRemovalHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	apiHooks      APIHooks      = NoopAPIHooks{}
	hooksMu       sync.RWMutex
)

// SetWorkflowHooks registers custom workflow hooks.
// This should be called once at application startup.
func SetWorkflowHooks(h WorkflowHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		workflowHooks = h
	}
}

// SetMonitorHooks registers custom monitor hooks.
func SetMonitorHooks(h MonitorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		monitorHooks = h
	}
}

// SetRemovalHooks registers custom removal hooks.
func SetRemovalHooks(h RemovalHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		removalHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetAPIHooks registers custom API hooks.
func SetAPIHooks(h APIHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		apiHooks = h
	}
}

// Workflow returns the registered workflow hooks.
func Workflow() WorkflowHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return workflowHooks
}

// Monitor returns the registered monitor hooks.
func Monitor() MonitorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return monitorHooks
}

// Removal returns the registered removal hooks.
func Removal() RemovalHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return removalHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// API returns the registered API hooks.
func API() APIHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return apiHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	workflowHooks = NoopWorkflowHooks{}
	monitorHooks = NoopMonitorHooks{}
	removalHooks = NoopRemovalHooks{}
	cacheHooks = NoopCacheHooks{}
	apiHooks = NoopAPIHooks{}
}
