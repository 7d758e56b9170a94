package engine

import (
	"github.com/tidwall/btree"
)

// SideBook holds one side (bid or ask) of the book: a price-indexed map of
// PriceLevels, iterable in ascending price order, plus an id index for
// cancel lookups.
//
// The spec (§9 "Id-by-price index") calls the price->set<OrderID> index a
// performance compromise and explicitly permits replacing it with a single
// id->price map "simpler and strictly better" as long as cancels still
// succeed by id alone. This implementation takes that option: byID maps an
// id directly to the level holding it, skipping the per-price set entirely.
type SideBook struct {
	levels *btree.BTreeG[*PriceLevel]
	byID   map[OrderID]*PriceLevel
}

func newSideBook() *SideBook {
	return &SideBook{
		levels: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.price.LessThan(b.price)
		}),
		byID: make(map[OrderID]*PriceLevel),
	}
}

// Open ensures a PriceLevel exists at order.Price, inserts the order, and
// returns the OpenedEvent describing it.
func (sb *SideBook) Open(order LimitOrder) OpenedEvent {
	if _, exists := sb.byID[order.ID]; exists {
		panic("engine: duplicate order id inserted into SideBook")
	}

	level, ok := sb.levels.Get(&PriceLevel{price: order.Price})
	if !ok {
		level = newPriceLevel(order.Price)
		sb.levels.Set(level)
	}
	level.Insert(order)
	sb.byID[order.ID] = level

	return newOpenedEvent(order)
}

// Cancel removes id from whichever level holds it, if any. A hit in byID
// with no matching order in the level is an invariant violation (spec §4.4.5)
// and is fatal rather than silently ignored.
func (sb *SideBook) Cancel(id OrderID) (LimitOrder, bool) {
	level, ok := sb.byID[id]
	if !ok {
		return LimitOrder{}, false
	}

	order, ok := level.Remove(id)
	if !ok {
		panic("engine: SideBook id index references an order missing from its level")
	}
	if level.AggregateSize().Sign() < 0 {
		panic("engine: negative aggregate size in PriceLevel after removal")
	}
	delete(sb.byID, id)

	if level.Count() == 0 {
		sb.levels.Delete(level)
	}

	return order, true
}

// LevelsAscending iterates (price asc, *PriceLevel) pairs, skipping levels
// whose aggregate size has dropped to zero. The walk stops once fn returns
// false.
func (sb *SideBook) LevelsAscending(fn func(*PriceLevel) bool) {
	sb.levels.Scan(func(level *PriceLevel) bool {
		if level.AggregateSize().Sign() == 0 {
			return true
		}
		return fn(level)
	})
}

// LevelsDescending is LevelsAscending in reverse price order.
func (sb *SideBook) LevelsDescending(fn func(*PriceLevel) bool) {
	sb.levels.Reverse(func(level *PriceLevel) bool {
		if level.AggregateSize().Sign() == 0 {
			return true
		}
		return fn(level)
	})
}

// snapshot collects a read-only view of every non-empty level, in the
// direction the caller asks for.
func (sb *SideBook) snapshot(descending bool) []LevelSnapshot {
	var out []LevelSnapshot
	collect := func(l *PriceLevel) bool {
		out = append(out, LevelSnapshot{
			Price:      l.Price(),
			Size:       l.AggregateSize(),
			OrderCount: l.Count(),
		})
		return true
	}
	if descending {
		sb.LevelsDescending(collect)
	} else {
		sb.LevelsAscending(collect)
	}
	return out
}
