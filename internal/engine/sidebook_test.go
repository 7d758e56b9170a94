package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideBookOpenCreatesLevelOnFirstOrder(t *testing.T) {
	sb := newSideBook()
	order := testOrder(10, 1, 100)

	opened := sb.Open(order)
	assert.Equal(t, order.ID, opened.ID)

	var prices []string
	sb.LevelsAscending(func(l *PriceLevel) bool {
		prices = append(prices, l.Price().String())
		return true
	})
	assert.Equal(t, []string{"10"}, prices)
}

func TestSideBookCancelByIDAlone(t *testing.T) {
	sb := newSideBook()
	order := testOrder(10, 1, 100)
	sb.Open(order)

	removed, ok := sb.Cancel(order.ID)
	require.True(t, ok)
	assert.Equal(t, order.ID, removed.ID)

	_, ok = sb.Cancel(order.ID)
	assert.False(t, ok, "second cancel of the same id must fail")
}

func TestSideBookLevelsAscendingSkipsDrainedLevels(t *testing.T) {
	sb := newSideBook()
	low := testOrder(10, 1, 100)
	high := testOrder(20, 1, 100)
	sb.Open(low)
	sb.Open(high)

	sb.Cancel(low.ID)

	var prices []string
	sb.LevelsAscending(func(l *PriceLevel) bool {
		prices = append(prices, l.Price().String())
		return true
	})
	assert.Equal(t, []string{"20"}, prices, "drained level must be skipped, not just emptied")
}

func TestSideBookLevelsDescendingOrder(t *testing.T) {
	sb := newSideBook()
	sb.Open(testOrder(10, 1, 100))
	sb.Open(testOrder(30, 1, 100))
	sb.Open(testOrder(20, 1, 100))

	var prices []string
	sb.LevelsDescending(func(l *PriceLevel) bool {
		prices = append(prices, l.Price().String())
		return true
	})
	assert.Equal(t, []string{"30", "20", "10"}, prices)
}

func TestSideBookDuplicateIDPanics(t *testing.T) {
	sb := newSideBook()
	order := testOrder(10, 1, 100)
	sb.Open(order)

	assert.Panics(t, func() {
		sb.Open(order)
	})
}
