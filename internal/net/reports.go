package net

import (
	"encoding/binary"

	"github.com/google/uuid"

	"ferrum/internal/engine"
)

// ReportMessageType distinguishes the wire encoding of an outbound report,
// generalizing the teacher's two-way ReportMessageType (ExecutionReport,
// ErrorReport) to one entry per engine.EventKind plus a server-side error
// report for requests that never reached the engine (malformed frames).
type ReportMessageType uint8

const (
	ReportOpened ReportMessageType = iota
	ReportFilled
	ReportCanceled
	ReportBounce
	ReportError
)

// EncodeEvent serializes one engine.Event to the wire, for the asset it
// occurred on. Every field that was a fixed-width binary number in the
// teacher's Report (Price, Quantity) is now a length-prefixed decimal
// string, matching NewOrderMessage's encoding of the same values.
func EncodeEvent(asset string, ev engine.Event) []byte {
	var buf []byte
	appendHeader := func(rt ReportMessageType) {
		buf = append(buf, byte(rt))
		buf = append(buf, writeLenPrefixed(asset)...)
	}
	appendUUID := func(id uuid.UUID) { buf = append(buf, id[:]...) }
	appendOptionalUUID := func(id *engine.OrderID) {
		if id == nil {
			buf = append(buf, 0)
			return
		}
		buf = append(buf, 1)
		appendUUID(*id)
	}
	appendTimestamp := func(ts int64) {
		tsBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(tsBuf, uint64(ts))
		buf = append(buf, tsBuf...)
	}

	switch e := ev.(type) {
	case engine.OpenedEvent:
		appendHeader(ReportOpened)
		appendUUID(e.ID)
		appendOptionalUUID(e.Parent)
		appendUUID(e.Owner)
		buf = append(buf, byte(e.Direction))
		buf = append(buf, writeLenPrefixed(e.Price.String())...)
		buf = append(buf, writeLenPrefixed(e.Size.String())...)
		appendTimestamp(e.Timestamp)
	case engine.FilledEvent:
		appendHeader(ReportFilled)
		appendUUID(e.ID)
		appendOptionalUUID(e.Parent)
		appendUUID(e.Owner)
		buf = append(buf, writeLenPrefixed(e.Price.String())...)
		buf = append(buf, writeLenPrefixed(e.Size.String())...)
		appendTimestamp(e.Timestamp)
	case engine.CanceledEvent:
		appendHeader(ReportCanceled)
		appendUUID(e.ID)
		appendOptionalUUID(e.Parent)
		appendUUID(e.Owner)
		appendTimestamp(e.Timestamp)
	case engine.BounceEvent:
		appendHeader(ReportBounce)
		appendOptionalUUID(e.ID)
		appendUUID(e.Owner)
		buf = append(buf, writeLenPrefixed(e.Reason.String())...)
		appendTimestamp(e.Timestamp)
	default:
		appendHeader(ReportError)
		buf = append(buf, writeLenPrefixed("unknown event type")...)
	}
	return buf
}

// EncodeError builds a server-side error report for requests that never
// reached an engine (e.g. a frame that failed to parse), replacing the
// teacher's generateWireErrorReports.
func EncodeError(asset string, err error) []byte {
	buf := []byte{byte(ReportError)}
	buf = append(buf, writeLenPrefixed(asset)...)
	buf = append(buf, writeLenPrefixed(err.Error())...)
	return buf
}
