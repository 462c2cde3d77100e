package events

import (
	"github.com/asaskevich/EventBus"
)

// Topics for push events and connection signals. One topic per event kind;
// handlers receive the concrete record type published for that topic.
const (
	TopicTick        = "stream:tick"
	TopicCandle      = "stream:candle"
	TopicTrade       = "stream:trade"
	TopicTradeStatus = "stream:trade_status"
	TopicProfit      = "stream:profit"
	TopicBalance     = "stream:balance"
	TopicNews        = "stream:news"
	TopicKeepAlive   = "stream:keep_alive"

	TopicConnected    = "conn:connected"
	TopicDisconnected = "conn:disconnected"

	TopicCandleOpened  = "chart:candle_opened"
	TopicTickProcessed = "chart:tick_processed"
)

// Bus fans events out to subscribers. Publishing is synchronous: handlers
// for a topic run in the publisher's goroutine in subscription order, which
// keeps per-symbol tick delivery in arrival order.
type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Publish(topic string, args ...interface{}) {
	b.bus.Publish(topic, args...)
}

func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}
