package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MatchingEngine orchestrates request intake, the matching walk, and event
// emission for one tradable asset. It is a pure (state, request) -> (state',
// events) function except for its use of Clock and IDSource (spec §1).
//
// A MatchingEngine is not safe for concurrent use: requests are processed
// one at a time, to completion, by a single caller (spec §5).
type MatchingEngine struct {
	bid *SideBook
	ask *SideBook

	clock Clock
	ids   IDSource
}

// New builds a MatchingEngine with production defaults: a system clock and
// UUIDv7 id minting.
func New() *MatchingEngine {
	return NewWithSources(NewSystemClock(), UUIDSource{})
}

// NewWithSources builds a MatchingEngine with an injected clock and id
// source — used by tests and replay harnesses that need deterministic,
// reproducible event logs (spec §8 P7).
func NewWithSources(clock Clock, ids IDSource) *MatchingEngine {
	return &MatchingEngine{
		bid:   newSideBook(),
		ask:   newSideBook(),
		clock: clock,
		ids:   ids,
	}
}

// Process is the engine's single public operation. It stamps the request
// with a timestamp sampled once (spec §4.4.1) and dispatches it.
func (e *MatchingEngine) Process(req Request) []Event {
	ts := e.clock.NowMS()

	switch r := req.(type) {
	case OpenRequest:
		return e.processOpen(r, ts)
	case CancelRequest:
		return e.processCancel(r, ts)
	default:
		panic(fmt.Sprintf("engine: unknown request type %T", req))
	}
}

func (e *MatchingEngine) processOpen(r OpenRequest, ts int64) []Event {
	if r.Price.Sign() <= 0 || r.Size.Sign() <= 0 || !r.Direction.Valid() {
		var id *OrderID
		if hasID(r.ID) {
			id = &r.ID
		}
		return []Event{BounceEvent{ID: id, Owner: r.Owner, Reason: BounceInvalidOrder, Timestamp: ts}}
	}

	id := r.ID
	if !hasID(id) {
		id = e.ids.Mint()
	}

	order := LimitOrder{
		ID:        id,
		Owner:     r.Owner,
		Price:     r.Price,
		Size:      r.Size,
		Direction: r.Direction,
		Timestamp: ts,
	}

	own, opp := e.sidesFor(order.Direction)
	events := []Event{own.Open(order)}
	return e.bookWalk(order, own, opp, ts, events)
}

func (e *MatchingEngine) processCancel(r CancelRequest, ts int64) []Event {
	if order, ok := e.bid.Cancel(r.ID); ok {
		return []Event{CanceledEvent{ID: order.ID, Owner: order.Owner, Parent: order.Parent, Timestamp: ts}}
	}
	if order, ok := e.ask.Cancel(r.ID); ok {
		return []Event{CanceledEvent{ID: order.ID, Owner: order.Owner, Parent: order.Parent, Timestamp: ts}}
	}

	id := r.ID
	return []Event{BounceEvent{ID: &id, Owner: r.Owner, Reason: BounceOrderNotFound, Timestamp: ts}}
}

// sidesFor returns (own, opposite) SideBooks for a direction: own is where
// the order rests, opposite is what it walks to find a cross.
func (e *MatchingEngine) sidesFor(direction OrderDirection) (own, opposite *SideBook) {
	if direction == Bid {
		return e.bid, e.ask
	}
	return e.ask, e.bid
}

// bookWalk implements the matching walk of spec §4.4.3. events already
// contains the leading Opened event for the incoming order; bookWalk appends
// to it and returns the full, ordered event vector for this Process call.
func (e *MatchingEngine) bookWalk(order LimitOrder, own, opp *SideBook, ts int64, events []Event) []Event {
	remainder := order.Size

	type pendingRemoval struct{ id OrderID }
	var removals []pendingRemoval
	var matchResidual *LimitOrder

	consumeLevel := func(level *PriceLevel) (stop bool) {
		keepGoing := true
		level.Iter(func(m LimitOrder) bool {
			if m.Size.LessThanOrEqual(remainder) {
				events = append(events, FilledEvent{
					ID: m.ID, Owner: m.Owner, Parent: m.Parent,
					Price: m.Price, Size: m.Size, Timestamp: ts,
				})
				removals = append(removals, pendingRemoval{m.ID})
				remainder = remainder.Sub(m.Size)

				if remainder.IsZero() {
					keepGoing = false
					return false
				}
				return true
			}

			// m.Size > remainder: partial fill of the resting order. The
			// walk stops here regardless of what remains in this level.
			events = append(events, FilledEvent{
				ID: m.ID, Owner: m.Owner, Parent: m.Parent,
				Price: m.Price, Size: remainder, Timestamp: ts,
			})
			residualID := e.ids.Mint()
			mID := m.ID
			residual := LimitOrder{
				ID:        residualID,
				Parent:    &mID,
				Owner:     m.Owner,
				Price:     m.Price,
				Size:      m.Size.Sub(remainder),
				Direction: m.Direction,
				// Resolved open question (spec §9): stamp the match-side
				// residual with the current request's ts, not m.Timestamp,
				// so it cannot starve orders that arrived between the
				// original placement and this partial fill.
				Timestamp: ts,
			}
			matchResidual = &residual
			removals = append(removals, pendingRemoval{m.ID})
			remainder = decimal.Zero
			keepGoing = false
			return false
		})
		return !keepGoing
	}

	switch order.Direction {
	case Bid:
		opp.LevelsAscending(func(level *PriceLevel) bool {
			if level.Price().GreaterThan(order.Price) {
				return false
			}
			return !consumeLevel(level)
		})
	case Ask:
		opp.LevelsDescending(func(level *PriceLevel) bool {
			if level.Price().LessThan(order.Price) {
				return false
			}
			return !consumeLevel(level)
		})
	}

	for _, rm := range removals {
		if _, ok := opp.Cancel(rm.id); !ok {
			panic("engine: id-index desync removing a matched order during the book walk")
		}
	}

	if matchResidual != nil && matchResidual.Size.Sign() > 0 {
		events = append(events, opp.Open(*matchResidual))
	}

	if remainder.LessThan(order.Size) {
		if _, ok := own.Cancel(order.ID); !ok {
			panic("engine: incoming order missing from its own side during fill")
		}

		events = append(events, FilledEvent{
			ID: order.ID, Owner: order.Owner, Parent: order.Parent,
			Price: order.Price, Size: order.Size.Sub(remainder), Timestamp: ts,
		})

		if remainder.Sign() > 0 {
			residual := LimitOrder{
				ID:        e.ids.Mint(),
				Parent:    &order.ID,
				Owner:     order.Owner,
				Price:     order.Price,
				Size:      remainder,
				Direction: order.Direction,
				Timestamp: ts,
			}
			events = append(events, own.Open(residual))
		}
	}

	return events
}
