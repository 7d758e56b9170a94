package engine

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderDirection is the side of the book an order rests on.
type OrderDirection int

const (
	Bid OrderDirection = iota
	Ask
)

func (d OrderDirection) String() string {
	switch d {
	case Bid:
		return "Bid"
	case Ask:
		return "Ask"
	default:
		return "Unknown"
	}
}

func (d OrderDirection) Valid() bool {
	return d == Bid || d == Ask
}

// OrderID and OwnerID are opaque 128-bit identifiers. Only their uniqueness
// and total order matter to the engine; callers must never assign meaning
// to their bit pattern beyond that.
type OrderID = uuid.UUID
type OwnerID = uuid.UUID

// LimitOrder is an immutable resting or incoming order. Parent is non-nil
// only when this order is the residual of a partially filled predecessor.
type LimitOrder struct {
	ID        OrderID
	Parent    *OrderID
	Owner     OwnerID
	Price     decimal.Decimal
	Size      decimal.Decimal
	Direction OrderDirection
	Timestamp int64 // ms since epoch
}

// lessOrder is the engine's single total order: price ascending, then
// timestamp ascending, then id ascending. It must stay consistent with
// equality-on-id (see spec §9) — never drop the id tie-break, or two
// same-priced, same-millisecond orders would collide in the level's set.
func lessOrder(a, b LimitOrder) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.LessThan(b.Price)
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}
