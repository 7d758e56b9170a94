// Package host wires the matching engine core to the outside world: it owns
// the per-asset Registry, provides the supervised worker pool the wire
// server reads connections with, and republishes resulting events to every
// registered Reporter (the wire server, the websocket feed, metrics).
package host

import (
	"github.com/rs/zerolog/log"

	"ferrum/internal/engine"
)

// Reporter receives the event vector produced by one Process call. Reporters
// must not block for long; ReportEvents is called synchronously from the
// asset's serialized request path.
type Reporter interface {
	ReportEvents(asset string, events []engine.Event)
}

// AssetEvents is the publish envelope for one batch of events, mirroring the
// {asset, events} wrapper the original matching engine published to its
// message bus.
type AssetEvents struct {
	Asset  string         `json:"asset"`
	Events []engine.Event `json:"events"`
}

// Host is the process-wide coordinator: one Registry of engines, and the set
// of reporters that get told about every event batch.
type Host struct {
	Registry  *Registry
	reporters []Reporter
}

func New() *Host {
	return &Host{Registry: NewRegistry()}
}

// AddReporter registers r to receive every future event batch. Not safe to
// call concurrently with Submit.
func (h *Host) AddReporter(r Reporter) {
	h.reporters = append(h.reporters, r)
}

// Submit runs req against asset's engine and fans the resulting events out to
// every reporter before returning them to the caller.
func (h *Host) Submit(asset string, req engine.Request) []engine.Event {
	events := h.Registry.Process(asset, req)
	if len(events) == 0 {
		return events
	}
	for _, r := range h.reporters {
		r.ReportEvents(asset, events)
	}
	log.Debug().Str("asset", asset).Int("events", len(events)).Msg("processed request")
	return events
}

// Snapshot exposes the registry's read-only book view for asset.
func (h *Host) Snapshot(asset string) (engine.BookSnapshot, bool) {
	return h.Registry.Snapshot(asset)
}
