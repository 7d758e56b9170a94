package net

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferrum/internal/engine"
)

func TestNewOrderMessageRoundTrip(t *testing.T) {
	original := NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		Asset:       "BTC-USD",
		Direction:   engine.Bid,
		Price:       "12345.6789",
		Size:        "0.5",
		Username:    "alice",
	}

	wire := original.Serialize()
	parsed, err := parseMessage(wire)
	require.NoError(t, err)

	m, ok := parsed.(NewOrderMessage)
	require.True(t, ok)
	assert.Equal(t, original.Asset, m.Asset)
	assert.Equal(t, original.Direction, m.Direction)
	assert.Equal(t, original.Price, m.Price)
	assert.Equal(t, original.Size, m.Size)
	assert.Equal(t, original.Username, m.Username)
}

func TestNewOrderMessageOpenRequestParsesDecimals(t *testing.T) {
	m := NewOrderMessage{
		Asset:     "BTC-USD",
		Direction: engine.Ask,
		Price:     "100.25",
		Size:      "3",
		Username:  "bob",
	}
	req, err := m.OpenRequest()
	require.NoError(t, err)
	assert.Equal(t, engine.Ask, req.Direction)
	assert.True(t, req.Price.Equal(decimal.RequireFromString("100.25")))
	assert.True(t, req.Size.Equal(decimal.RequireFromString("3")))

	// the same username must always map to the same owner id
	again, err := m.OpenRequest()
	require.NoError(t, err)
	assert.Equal(t, req.Owner, again.Owner)
}

func TestNewOrderMessageOpenRequestRejectsBadDecimal(t *testing.T) {
	m := NewOrderMessage{Asset: "X", Price: "not-a-number", Size: "1", Username: "u"}
	_, err := m.OpenRequest()
	assert.ErrorIs(t, err, ErrInvalidDecimal)
}

func TestCancelOrderMessageRoundTrip(t *testing.T) {
	id := uuid.New()
	original := CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		Asset:       "ETH-USD",
		OrderID:     id,
		Username:    "carol",
	}

	wire := original.Serialize()
	parsed, err := parseMessage(wire)
	require.NoError(t, err)

	m, ok := parsed.(CancelOrderMessage)
	require.True(t, ok)
	assert.Equal(t, original.Asset, m.Asset)
	assert.Equal(t, original.OrderID, m.OrderID)
	assert.Equal(t, original.Username, m.Username)
}

func TestLogBookMessageRoundTrip(t *testing.T) {
	original := LogBookMessage{Asset: "BTC-USD"}
	wire := original.Serialize()
	parsed, err := parseMessage(wire)
	require.NoError(t, err)

	m, ok := parsed.(LogBookMessage)
	require.True(t, ok)
	assert.Equal(t, original.Asset, m.Asset)
}

func TestParseMessageTooShortHeader(t *testing.T) {
	_, err := parseMessage([]byte{0})
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestParseDirectionAcceptsSynonyms(t *testing.T) {
	d, err := ParseDirection("buy")
	require.NoError(t, err)
	assert.Equal(t, engine.Bid, d)

	d, err = ParseDirection("ASK")
	require.NoError(t, err)
	assert.Equal(t, engine.Ask, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
