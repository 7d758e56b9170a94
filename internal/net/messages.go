// Package net implements fenrir's TCP order-entry wire protocol: a small
// length-prefixed binary framing generalized from the teacher's
// fixed-width, float64-priced protocol to the spec's opaque asset strings
// and exact decimal arithmetic.
package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ferrum/internal/engine"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for declared field lengths")
	ErrInvalidDecimal     = errors.New("invalid decimal string on the wire")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	LogBook
)

type Message interface {
	GetType() MessageType
}

// ParseDirection accepts the CLI-friendly spellings ("bid"/"ask",
// "buy"/"sell") used by fenrircli.
func ParseDirection(s string) (engine.OrderDirection, error) {
	switch strings.ToLower(s) {
	case "bid", "buy":
		return engine.Bid, nil
	case "ask", "sell":
		return engine.Ask, nil
	default:
		return 0, fmt.Errorf("unrecognized direction %q", s)
	}
}

// Every variable-length field is prefixed with an explicit uint16 length,
// generalizing the teacher's UsernameLen convention (original
// NewOrderMessage) to every string field the new protocol needs: asset,
// decimal price/size, username.
const baseMessageHeaderLen = 2 // MessageType

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < baseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case LogBook:
		return parseLogBook(body)
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

// readLenPrefixed reads a uint16-length-prefixed byte slice starting at
// buf[0], returning the field and the remainder of buf following it.
func readLenPrefixed(buf []byte) (field []byte, rest []byte, err error) {
	if len(buf) < 2 {
		return nil, nil, ErrMessageTooShort
	}
	n := int(binary.BigEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < n {
		return nil, nil, ErrMessageTooShort
	}
	return buf[:n], buf[n:], nil
}

func writeLenPrefixed(field string) []byte {
	out := make([]byte, 2+len(field))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(field)))
	copy(out[2:], field)
	return out
}

// NewOrderMessage carries everything needed to build an engine.OpenRequest.
// Unlike the teacher's version (fixed 4-byte Ticker, float64 LimitPrice),
// Asset/Price/Size are length-prefixed strings so asset identifiers are
// opaque and price/size never round-trip through a binary float (spec §1's
// exact-decimal requirement).
type NewOrderMessage struct {
	BaseMessage
	Asset     string
	Direction engine.OrderDirection // 1 byte
	Price     string                // decimal string
	Size      string                // decimal string
	Username  string
	ClientID  uuid.UUID // zero value = "let the server mint one"
}

const (
	directionLen = 1
	clientIDLen  = 16
)

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}

	asset, rest, err := readLenPrefixed(msg)
	if err != nil {
		return NewOrderMessage{}, err
	}
	m.Asset = string(asset)

	if len(rest) < directionLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Direction = engine.OrderDirection(rest[0])
	rest = rest[directionLen:]

	price, rest, err := readLenPrefixed(rest)
	if err != nil {
		return NewOrderMessage{}, err
	}
	m.Price = string(price)

	size, rest, err := readLenPrefixed(rest)
	if err != nil {
		return NewOrderMessage{}, err
	}
	m.Size = string(size)

	username, rest, err := readLenPrefixed(rest)
	if err != nil {
		return NewOrderMessage{}, err
	}
	m.Username = string(username)

	if len(rest) < clientIDLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	copy(m.ClientID[:], rest[:clientIDLen])

	return m, nil
}

func (m *NewOrderMessage) Serialize() []byte {
	typeBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(typeBuf, uint16(NewOrder))

	var buf []byte
	buf = append(buf, typeBuf...)
	buf = append(buf, writeLenPrefixed(m.Asset)...)
	buf = append(buf, byte(m.Direction))
	buf = append(buf, writeLenPrefixed(m.Price)...)
	buf = append(buf, writeLenPrefixed(m.Size)...)
	buf = append(buf, writeLenPrefixed(m.Username)...)
	buf = append(buf, m.ClientID[:]...)
	return buf
}

// OpenRequest converts the wire message into an engine.OpenRequest, parsing
// the decimal strings strictly (spec §1: no binary-float drift).
func (m *NewOrderMessage) OpenRequest() (engine.OpenRequest, error) {
	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return engine.OpenRequest{}, fmt.Errorf("%w: price %q: %v", ErrInvalidDecimal, m.Price, err)
	}
	size, err := decimal.NewFromString(m.Size)
	if err != nil {
		return engine.OpenRequest{}, fmt.Errorf("%w: size %q: %v", ErrInvalidDecimal, m.Size, err)
	}

	return engine.OpenRequest{
		ID:        m.ClientID,
		Owner:     ownerID(m.Username),
		Price:     price,
		Size:      size,
		Direction: m.Direction,
	}, nil
}

// ownerNamespace maps wire usernames to opaque OwnerIDs deterministically,
// so the same username always yields the same owner across reconnects
// without the matching core ever seeing the human-readable name.
var ownerNamespace = uuid.NewSHA1(uuid.Nil, []byte("fenrir.owner.v1"))

func ownerID(username string) engine.OwnerID {
	return uuid.NewSHA1(ownerNamespace, []byte(username))
}

// CancelOrderMessage requests cancellation of a resting order by id.
type CancelOrderMessage struct {
	BaseMessage
	Asset    string
	OrderID  uuid.UUID
	Username string
}

const orderIDLen = 16

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}

	asset, rest, err := readLenPrefixed(msg)
	if err != nil {
		return CancelOrderMessage{}, err
	}
	m.Asset = string(asset)

	if len(rest) < orderIDLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	copy(m.OrderID[:], rest[:orderIDLen])
	rest = rest[orderIDLen:]

	username, _, err := readLenPrefixed(rest)
	if err != nil {
		return CancelOrderMessage{}, err
	}
	m.Username = string(username)

	return m, nil
}

func (m *CancelOrderMessage) Serialize() []byte {
	typeBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(typeBuf, uint16(CancelOrder))

	var buf []byte
	buf = append(buf, typeBuf...)
	buf = append(buf, writeLenPrefixed(m.Asset)...)
	buf = append(buf, m.OrderID[:]...)
	buf = append(buf, writeLenPrefixed(m.Username)...)
	return buf
}

func (m *CancelOrderMessage) CancelRequest() engine.CancelRequest {
	return engine.CancelRequest{
		ID:    m.OrderID,
		Owner: ownerID(m.Username),
	}
}

// LogBookMessage requests a point-in-time snapshot of one asset's book,
// completing the wiring the teacher's protocol only stubbed
// (internal/net/server.go handleMessage's LogBook case called
// s.engine.LogBook() with no asset and no reply). The server logs the
// snapshot's bid and ask level counts; no report is sent back to the client.
type LogBookMessage struct {
	BaseMessage
	Asset string
}

func parseLogBook(msg []byte) (LogBookMessage, error) {
	asset, _, err := readLenPrefixed(msg)
	if err != nil {
		return LogBookMessage{}, err
	}
	return LogBookMessage{BaseMessage: BaseMessage{TypeOf: LogBook}, Asset: string(asset)}, nil
}

func (m *LogBookMessage) Serialize() []byte {
	typeBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(typeBuf, uint16(LogBook))
	return append(typeBuf, writeLenPrefixed(m.Asset)...)
}
