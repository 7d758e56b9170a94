package engine

import "github.com/shopspring/decimal"

// LevelSnapshot is a read-only view of one non-empty price level, used for
// book introspection (the wire protocol's LogBook request) and for the
// depth gauges in internal/metrics.
type LevelSnapshot struct {
	Price      decimal.Decimal
	Size       decimal.Decimal
	OrderCount int
}

// BookSnapshot is a read-only view of both sides of the book, each ordered
// best-price-first.
type BookSnapshot struct {
	Bids []LevelSnapshot // descending price: best bid first
	Asks []LevelSnapshot // ascending price: best ask first
}

// Snapshot never mutates engine state and is safe to call between Process
// calls (but not concurrently with one, per the single-writer model).
func (e *MatchingEngine) Snapshot() BookSnapshot {
	return BookSnapshot{
		Bids: e.bid.snapshot(true),
		Asks: e.ask.snapshot(false),
	}
}
