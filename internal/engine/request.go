package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request is the tagged union process() accepts.
type Request interface {
	isRequest()
}

// OpenRequest asks the engine to rest (and possibly immediately match) a new
// limit order. ID is normally uuid.Nil; the engine mints a fresh id unless
// the caller supplies one (e.g. a transport layer replaying a logged
// request with its original id, spec §4.4.1).
type OpenRequest struct {
	ID        OrderID
	Owner     OwnerID
	Price     decimal.Decimal
	Size      decimal.Decimal
	Direction OrderDirection
}

func (OpenRequest) isRequest() {}

// CancelRequest asks the engine to remove a resting order by id. Owner is
// carried through to the resulting event but is never consulted as an
// authorization check (spec §9 "Owner is not consulted on cancel").
type CancelRequest struct {
	ID    OrderID
	Owner OwnerID
}

func (CancelRequest) isRequest() {}

func hasID(id OrderID) bool {
	return id != uuid.Nil
}
