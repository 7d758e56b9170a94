package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestEngine builds a MatchingEngine with a deterministic clock and id
// source so assertions can pin exact timestamps and ids.
func createTestEngine(startMS int64) (*MatchingEngine, *FixedClock) {
	clock := NewFixedClock(startMS)
	eng := NewWithSources(clock, NewSequentialIDSource())
	return eng, clock
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func openBid(owner OwnerID, price, size int64) OpenRequest {
	return OpenRequest{Owner: owner, Price: dec(price), Size: dec(size), Direction: Bid}
}

func openAsk(owner OwnerID, price, size int64) OpenRequest {
	return OpenRequest{Owner: owner, Price: dec(price), Size: dec(size), Direction: Ask}
}

func asOpened(t *testing.T, ev Event) OpenedEvent {
	t.Helper()
	opened, ok := ev.(OpenedEvent)
	require.True(t, ok, "expected OpenedEvent, got %T", ev)
	return opened
}

func asFilled(t *testing.T, ev Event) FilledEvent {
	t.Helper()
	filled, ok := ev.(FilledEvent)
	require.True(t, ok, "expected FilledEvent, got %T", ev)
	return filled
}

func asCanceled(t *testing.T, ev Event) CanceledEvent {
	t.Helper()
	canceled, ok := ev.(CanceledEvent)
	require.True(t, ok, "expected CanceledEvent, got %T", ev)
	return canceled
}

func asBounce(t *testing.T, ev Event) BounceEvent {
	t.Helper()
	bounce, ok := ev.(BounceEvent)
	require.True(t, ok, "expected BounceEvent, got %T", ev)
	return bounce
}

// --- Scenario 1: Open, no match -------------------------------------------

func TestOpenNoMatch(t *testing.T) {
	eng, _ := createTestEngine(1000)
	owner := uuid.New()

	events := eng.Process(openBid(owner, 10, 1))

	require.Len(t, events, 1)
	opened := asOpened(t, events[0])
	assert.Equal(t, owner, opened.Owner)
	assert.True(t, dec(10).Equal(opened.Price))
	assert.True(t, dec(1).Equal(opened.Size))
	assert.Equal(t, Bid, opened.Direction)
}

// --- Scenario 2: Cancel existing -------------------------------------------

func TestCancelExisting(t *testing.T) {
	eng, _ := createTestEngine(1000)
	owner := uuid.New()

	opened := asOpened(t, eng.Process(openBid(owner, 10, 1))[0])

	events := eng.Process(CancelRequest{ID: opened.ID, Owner: owner})
	require.Len(t, events, 1)
	canceled := asCanceled(t, events[0])
	assert.Equal(t, opened.ID, canceled.ID)
	assert.Equal(t, owner, canceled.Owner)
}

// --- Scenario 3: Cancel unknown ---------------------------------------------

func TestCancelUnknown(t *testing.T) {
	eng, _ := createTestEngine(1000)
	owner := uuid.New()
	bogus := uuid.New()

	events := eng.Process(CancelRequest{ID: bogus, Owner: owner})
	require.Len(t, events, 1)
	bounce := asBounce(t, events[0])
	require.NotNil(t, bounce.ID)
	assert.Equal(t, bogus, *bounce.ID)
	assert.Equal(t, owner, bounce.Owner)
	assert.Equal(t, BounceOrderNotFound, bounce.Reason)
}

// --- Scenario 7: Double cancel -----------------------------------------------

func TestDoubleCancel(t *testing.T) {
	eng, _ := createTestEngine(1000)
	owner := uuid.New()

	opened := asOpened(t, eng.Process(openBid(owner, 10, 1))[0])
	asCanceled(t, eng.Process(CancelRequest{ID: opened.ID, Owner: owner})[0])

	events := eng.Process(CancelRequest{ID: opened.ID, Owner: owner})
	require.Len(t, events, 1)
	bounce := asBounce(t, events[0])
	assert.Equal(t, BounceOrderNotFound, bounce.Reason)
}

// --- Scenario 4: Exact match -------------------------------------------------

func TestExactMatch(t *testing.T) {
	eng, _ := createTestEngine(1000)
	a, b := uuid.New(), uuid.New()

	bidOpened := asOpened(t, eng.Process(openBid(a, 10, 1))[0])

	events := eng.Process(openAsk(b, 10, 1))
	require.Len(t, events, 3)

	askOpened := asOpened(t, events[0])
	assert.Equal(t, Ask, askOpened.Direction)

	bidFill := asFilled(t, events[1])
	assert.Equal(t, bidOpened.ID, bidFill.ID)
	assert.True(t, dec(1).Equal(bidFill.Size))
	assert.True(t, dec(10).Equal(bidFill.Price))

	askFill := asFilled(t, events[2])
	assert.Equal(t, askOpened.ID, askFill.ID)
	assert.True(t, dec(1).Equal(askFill.Size))
	assert.True(t, dec(10).Equal(askFill.Price))
}

// --- Scenario 5: Partial match of incoming ----------------------------------

func TestPartialMatchOfIncoming(t *testing.T) {
	eng, _ := createTestEngine(1000)
	a, b := uuid.New(), uuid.New()

	eng.Process(openBid(a, 10, 1))

	events := eng.Process(openAsk(b, 10, 2))
	require.Len(t, events, 4)

	askOpened := asOpened(t, events[0])
	asFilled(t, events[1])

	askFill := asFilled(t, events[2])
	assert.Equal(t, askOpened.ID, askFill.ID)
	assert.True(t, dec(1).Equal(askFill.Size))

	residual := asOpened(t, events[3])
	require.NotNil(t, residual.Parent)
	assert.Equal(t, askOpened.ID, *residual.Parent)
	assert.True(t, dec(1).Equal(residual.Size))
	assert.True(t, dec(10).Equal(residual.Price))
	assert.Equal(t, Ask, residual.Direction)
	assert.Equal(t, b, residual.Owner)
}

// --- Multi-order fill against one level (fill_many) -------------------------

func TestFillManyAtOneLevel(t *testing.T) {
	eng, clock := createTestEngine(1000)
	a, b := uuid.New(), uuid.New()

	bid1 := asOpened(t, eng.Process(openBid(a, 10, 1))[0])
	clock.Advance(1) // distinct timestamps so price-time priority (spec P4) is well-defined
	bid2 := asOpened(t, eng.Process(openBid(a, 10, 1))[0])

	events := eng.Process(openAsk(b, 10, 2))
	require.Len(t, events, 4)

	askOpened := asOpened(t, events[0])

	fill1 := asFilled(t, events[1])
	assert.Equal(t, bid1.ID, fill1.ID)
	assert.True(t, dec(1).Equal(fill1.Size))

	fill2 := asFilled(t, events[2])
	assert.Equal(t, bid2.ID, fill2.ID)
	assert.True(t, dec(1).Equal(fill2.Size))

	askFill := asFilled(t, events[3])
	assert.Equal(t, askOpened.ID, askFill.ID)
	assert.True(t, dec(2).Equal(askFill.Size))
}

// --- Scenario 6: Multi-level ask crossing bids ------------------------------

func TestFillCrossLevelsAsk(t *testing.T) {
	eng, _ := createTestEngine(1000)
	a, b := uuid.New(), uuid.New()

	bid10 := asOpened(t, eng.Process(openBid(a, 10, 3))[0])
	bid11 := asOpened(t, eng.Process(openBid(a, 11, 1))[0])

	events := eng.Process(openAsk(b, 10, 2))
	require.Len(t, events, 5)

	asOpened(t, events[0]) // ask opened

	fillAt11 := asFilled(t, events[1])
	assert.Equal(t, bid11.ID, fillAt11.ID)
	assert.True(t, dec(1).Equal(fillAt11.Size))
	assert.True(t, dec(11).Equal(fillAt11.Price))

	fillAt10 := asFilled(t, events[2])
	assert.Equal(t, bid10.ID, fillAt10.ID)
	assert.True(t, dec(1).Equal(fillAt10.Size))
	assert.True(t, dec(10).Equal(fillAt10.Price))

	residual := asOpened(t, events[3])
	require.NotNil(t, residual.Parent)
	assert.Equal(t, bid10.ID, *residual.Parent)
	assert.True(t, dec(2).Equal(residual.Size))
	assert.True(t, dec(10).Equal(residual.Price))
	assert.Equal(t, Bid, residual.Direction)
	assert.Equal(t, a, residual.Owner)

	askFill := asFilled(t, events[4])
	assert.True(t, dec(2).Equal(askFill.Size))
	assert.True(t, dec(10).Equal(askFill.Price))
}

// --- bid crossing multiple ask levels (mirror of scenario 6) ----------------

func TestFillCrossLevelsBid(t *testing.T) {
	eng, _ := createTestEngine(1000)
	a, b := uuid.New(), uuid.New()

	ask11 := asOpened(t, eng.Process(openAsk(b, 11, 2))[0])
	ask10 := asOpened(t, eng.Process(openAsk(b, 10, 4))[0])

	events := eng.Process(openBid(a, 11, 5))
	require.Len(t, events, 5)

	bidOpened := asOpened(t, events[0])

	fillAt10 := asFilled(t, events[1])
	assert.Equal(t, ask10.ID, fillAt10.ID)
	assert.True(t, dec(4).Equal(fillAt10.Size))
	assert.True(t, dec(10).Equal(fillAt10.Price))

	fillAt11 := asFilled(t, events[2])
	assert.Equal(t, ask11.ID, fillAt11.ID)
	assert.True(t, dec(1).Equal(fillAt11.Size))
	assert.True(t, dec(11).Equal(fillAt11.Price))

	residual := asOpened(t, events[3])
	require.NotNil(t, residual.Parent)
	assert.Equal(t, ask11.ID, *residual.Parent)
	assert.True(t, dec(1).Equal(residual.Size))
	assert.True(t, dec(11).Equal(residual.Price))
	assert.Equal(t, Ask, residual.Direction)

	bidFill := asFilled(t, events[4])
	assert.Equal(t, bidOpened.ID, bidFill.ID)
	assert.True(t, dec(5).Equal(bidFill.Size))
	assert.True(t, dec(11).Equal(bidFill.Price)) // incoming order's limit price, spec §9
}

// --- Self-match is not prevented (spec §9) ----------------------------------

func TestSelfMatchNotPrevented(t *testing.T) {
	eng, _ := createTestEngine(1000)
	owner := uuid.New()

	eng.Process(openBid(owner, 10, 1))

	events := eng.Process(openAsk(owner, 10, 1))
	require.Len(t, events, 3)
	fill := asFilled(t, events[1])
	assert.Equal(t, owner, fill.Owner)
}

// --- Invalid order bounces ---------------------------------------------------

func TestInvalidOrderBounces(t *testing.T) {
	eng, _ := createTestEngine(1000)
	owner := uuid.New()

	cases := []OpenRequest{
		{Owner: owner, Price: dec(0), Size: dec(1), Direction: Bid},
		{Owner: owner, Price: dec(-5), Size: dec(1), Direction: Bid},
		{Owner: owner, Price: dec(10), Size: dec(0), Direction: Bid},
		{Owner: owner, Price: dec(10), Size: dec(1), Direction: OrderDirection(99)},
	}

	for _, req := range cases {
		events := eng.Process(req)
		require.Len(t, events, 1)
		bounce := asBounce(t, events[0])
		assert.Equal(t, BounceInvalidOrder, bounce.Reason)
	}
}

// --- Size conservation within one crossing request (spec §8 P6) ------------

func TestVolumeConservationAcrossWalk(t *testing.T) {
	eng, _ := createTestEngine(1000)
	a, b := uuid.New(), uuid.New()

	eng.Process(openBid(a, 10, 3))
	eng.Process(openBid(a, 11, 1))

	events := eng.Process(openAsk(b, 10, 2))

	var incomingFilled, matchFilled decimal.Decimal
	askID := asOpened(t, events[0]).ID
	for _, ev := range events[1:] {
		f, ok := ev.(FilledEvent)
		if !ok {
			continue
		}
		if f.ID == askID {
			incomingFilled = incomingFilled.Add(f.Size)
		} else {
			matchFilled = matchFilled.Add(f.Size)
		}
	}
	assert.True(t, incomingFilled.Equal(matchFilled), "incoming filled %s != match filled %s", incomingFilled, matchFilled)
}

// --- Replay determinism (spec §8 P7) ----------------------------------------

func TestReplayDeterminism(t *testing.T) {
	owner := uuid.New()
	requests := []Request{
		openBid(owner, 10, 3),
		openBid(owner, 11, 1),
		openAsk(owner, 10, 2),
		CancelRequest{ID: uuid.New(), Owner: owner}, // bounces identically both runs
	}

	run := func() [][]Event {
		eng, clock := createTestEngine(1000)
		var out [][]Event
		for _, req := range requests {
			out = append(out, eng.Process(req))
			clock.Advance(1)
		}
		return out
	}

	first := run()
	second := run()

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, len(first[i]), len(second[i]), "request %d event count mismatch", i)
		for j := range first[i] {
			assert.Equal(t, first[i][j], second[i][j], "request %d event %d mismatch", i, j)
		}
	}
}

// --- P5 event-sequence shape for a non-crossing open ------------------------

func TestEventShapeNonCrossingOpen(t *testing.T) {
	eng, _ := createTestEngine(1000)
	events := eng.Process(openBid(uuid.New(), 10, 1))
	require.Len(t, events, 1)
	assert.Equal(t, EventOpened, events[0].Kind())
}
