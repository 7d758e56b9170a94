package engine

import (
	"github.com/shopspring/decimal"
)

// EventKind tags the variant of an Event for transport-layer switches
// without needing a type assertion.
type EventKind int

const (
	EventOpened EventKind = iota
	EventFilled
	EventCanceled
	EventBounce
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "Opened"
	case EventFilled:
		return "Filled"
	case EventCanceled:
		return "Canceled"
	case EventBounce:
		return "Bounce"
	default:
		return "Unknown"
	}
}

// Event is the tagged union the engine emits. process() always returns a
// []Event whose order is part of the engine's contract (spec §4.4.3).
type Event interface {
	Kind() EventKind
}

// OpenedEvent describes an order resting on the book, whether it arrived
// directly from an Open request or as the residual of a partial fill.
type OpenedEvent struct {
	ID        OrderID
	Parent    *OrderID
	Owner     OwnerID
	Price     decimal.Decimal
	Size      decimal.Decimal
	Direction OrderDirection
	Timestamp int64
}

func (OpenedEvent) Kind() EventKind { return EventOpened }

func newOpenedEvent(order LimitOrder) OpenedEvent {
	return OpenedEvent{
		ID:        order.ID,
		Parent:    order.Parent,
		Owner:     order.Owner,
		Price:     order.Price,
		Size:      order.Size,
		Direction: order.Direction,
		Timestamp: order.Timestamp,
	}
}

// FilledEvent records a trade reducing id's remaining size by Size at
// Price. For the incoming (taker) side, Price is the order's own limit
// price rather than the effective execution price — a documented wart
// preserved from the original source (spec §9).
type FilledEvent struct {
	ID        OrderID
	Owner     OwnerID
	Parent    *OrderID
	Price     decimal.Decimal
	Size      decimal.Decimal
	Timestamp int64
}

func (FilledEvent) Kind() EventKind { return EventFilled }

// CanceledEvent confirms a resting order was removed by id.
type CanceledEvent struct {
	ID        OrderID
	Owner     OwnerID
	Parent    *OrderID
	Timestamp int64
}

func (CanceledEvent) Kind() EventKind { return EventCanceled }

// BounceReason classifies why a request was rejected.
type BounceReason int

const (
	BounceOrderNotFound BounceReason = iota
	BounceInvalidOrder
)

func (r BounceReason) String() string {
	switch r {
	case BounceOrderNotFound:
		return "OrderNotFound"
	case BounceInvalidOrder:
		return "InvalidOrder"
	default:
		return "Unknown"
	}
}

// BounceEvent rejects a request. ID is nil when the request never reached
// the point of having one (e.g. an Open with a non-positive price).
type BounceEvent struct {
	ID        *OrderID
	Owner     OwnerID
	Reason    BounceReason
	Timestamp int64
}

func (BounceEvent) Kind() EventKind { return EventBounce }
