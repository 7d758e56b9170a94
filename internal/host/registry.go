package host

import (
	"sync"

	"ferrum/internal/engine"
)

// engineEntry pairs one asset's MatchingEngine with the mutex that
// serializes access to it. The core assumes a single writer (spec §5); this
// mutex is the boundary that makes that assumption true when multiple
// connections submit requests for the same asset concurrently.
type engineEntry struct {
	mu  sync.Mutex
	eng *engine.MatchingEngine
}

// Registry maps an opaque asset identifier to its own MatchingEngine
// instance (spec §6 "one engine instance per asset; ... not used by the
// matching logic itself"), generalizing the teacher's
// Engine.Books map[AssetType]OrderBook — which only supported its own
// closed AssetType enum — to the spec's opaque-string asset model.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*engineEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*engineEntry)}
}

func (r *Registry) entryFor(asset string) *engineEntry {
	r.mu.RLock()
	e, ok := r.entries[asset]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.entries[asset]; ok {
		return e
	}
	e = &engineEntry{eng: engine.New()}
	r.entries[asset] = e
	return e
}

// Process serializes access to asset's engine and returns the resulting
// event vector.
func (r *Registry) Process(asset string, req engine.Request) []engine.Event {
	e := r.entryFor(asset)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eng.Process(req)
}

// Snapshot returns a read-only view of asset's book. ok is false only if no
// request for that asset has ever been processed.
func (r *Registry) Snapshot(asset string) (snap engine.BookSnapshot, ok bool) {
	r.mu.RLock()
	e, exists := r.entries[asset]
	r.mu.RUnlock()
	if !exists {
		return engine.BookSnapshot{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eng.Snapshot(), true
}

// Assets lists every asset with a live engine, for metrics scraping.
func (r *Registry) Assets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	assets := make([]string, 0, len(r.entries))
	for asset := range r.entries {
		assets = append(assets, asset)
	}
	return assets
}
