package engine

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// PriceLevel is the time-ordered queue of orders resting at one price.
// aggregate is maintained as an invariant: it always equals the sum of
// contained order sizes (spec §3 P1); it is allowed to be zero, in which
// case the level is skipped by matching but not necessarily removed.
type PriceLevel struct {
	price     decimal.Decimal
	aggregate decimal.Decimal
	orders    *btree.BTreeG[LimitOrder]
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		price:  price,
		orders: btree.NewBTreeG(lessOrder),
	}
}

// Price reports the fixed price this level was created at.
func (l *PriceLevel) Price() decimal.Decimal {
	return l.price
}

// AggregateSize returns the invariant-maintained sum of resting order sizes.
func (l *PriceLevel) AggregateSize() decimal.Decimal {
	return l.aggregate
}

// Count reports the number of resting orders, for book introspection.
func (l *PriceLevel) Count() int {
	return l.orders.Len()
}

// Insert adds order to the level. Precondition: order.Price equals this
// level's price and order.ID is not already present — both are invariants
// the caller (SideBook) must uphold; violating them corrupts the book.
func (l *PriceLevel) Insert(order LimitOrder) {
	l.orders.Set(order)
	l.aggregate = l.aggregate.Add(order.Size)
}

// Remove scans the level for id, bounded by its occupancy, and removes it
// if found. Callers should consult a faster id index first; this method on
// its own is the spec's baseline O(level size) contract (spec §4.2).
func (l *PriceLevel) Remove(id OrderID) (LimitOrder, bool) {
	var found LimitOrder
	var ok bool
	l.orders.Scan(func(order LimitOrder) bool {
		if order.ID == id {
			found, ok = order, true
			return false
		}
		return true
	})
	if !ok {
		return LimitOrder{}, false
	}
	l.orders.Delete(found)
	l.aggregate = l.aggregate.Sub(found.Size)
	return found, true
}

// Iter yields contained orders earliest-first, i.e. in ascending total
// order. The walk stops as soon as fn returns false.
func (l *PriceLevel) Iter(fn func(LimitOrder) bool) {
	l.orders.Scan(fn)
}
