package engine

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// IDSource mints OrderIDs. Its only contract (spec §4.1): two calls never
// return equal ids within one engine instance, and ids are totally ordered.
// Neither property depends on the ids being sequential or time-correlated —
// engines are free to swap sources without changing observable behavior.
type IDSource interface {
	Mint() OrderID
}

// UUIDSource mints RFC 9562 UUIDv7 ids: time-ordered, globally unique, no
// shared mutable state required beyond what google/uuid already serializes
// internally to guarantee monotonicity within the same millisecond.
type UUIDSource struct{}

func (UUIDSource) Mint() OrderID {
	id, err := uuid.NewV7()
	if err != nil {
		// crypto/rand failure; uuid.New() (v4) still satisfies uniqueness.
		return uuid.New()
	}
	return id
}

// SequentialIDSource mints ids deterministically from a counter: unique,
// totally ordered, and reproducible across runs, but not monotonic in the
// counter's value (uuid.NewSHA1's output doesn't preserve input order).
// Used by replay and property tests that need byte-identical event logs
// (spec §8 P7) across runs.
type SequentialIDSource struct {
	mu      sync.Mutex
	counter uint64
}

func NewSequentialIDSource() *SequentialIDSource {
	return &SequentialIDSource{}
}

func (s *SequentialIDSource) Mint() OrderID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], s.counter)
	return uuid.NewSHA1(uuid.Nil, seed[:])
}
