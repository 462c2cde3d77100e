package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishIsSynchronousAndOrdered(t *testing.T) {
	bus := NewBus()

	var seen []int
	require.NoError(t, bus.Subscribe(TopicTick, func(v int) {
		seen = append(seen, v)
	}))

	for i := 0; i < 10; i++ {
		bus.Publish(TopicTick, i)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen,
		"handlers run in the publisher's goroutine in arrival order")
}

func TestMultipleSubscribersFanOut(t *testing.T) {
	bus := NewBus()

	var a, b int
	require.NoError(t, bus.Subscribe(TopicCandleOpened, func(symbol string, v int) { a = v }))
	require.NoError(t, bus.Subscribe(TopicCandleOpened, func(symbol string, v int) { b = v }))

	bus.Publish(TopicCandleOpened, "EURUSD", 7)
	assert.Equal(t, 7, a)
	assert.Equal(t, 7, b)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	count := 0
	handler := func(v int) { count++ }
	require.NoError(t, bus.Subscribe(TopicProfit, handler))

	bus.Publish(TopicProfit, 1)
	require.NoError(t, bus.Unsubscribe(TopicProfit, handler))
	bus.Publish(TopicProfit, 2)

	assert.Equal(t, 1, count)
}
