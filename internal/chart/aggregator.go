package chart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fxconnect/internal/events"
	"fxconnect/internal/interfaces"
	"fxconnect/internal/types"
)

// DefaultCapacity is the sliding-window size used when none is configured.
const DefaultCapacity = 2000

var ErrNoCandles = errors.New("no candles in window")

// Aggregator folds the live tick stream of one symbol into a sliding window
// of candles for one timeframe. It owns the window exclusively; ticks
// arrive on the streaming dispatch goroutine in strict arrival order.
type Aggregator struct {
	symbol   string
	tf       types.Timeframe
	capacity int
	bus      *events.Bus

	mu       sync.RWMutex
	window   []types.Candle
	lastTick types.Tick
	hasTick  bool
}

// NewAggregator seeds the window from history and subscribes to the tick
// stream. A failed seed fetch is an initialization error, not a bare
// transport error.
func NewAggregator(ctx context.Context, src interfaces.ChartSource, bus *events.Bus, symbol string, tf types.Timeframe, capacity int) (*Aggregator, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	start := time.Now().UTC().Add(-time.Duration(capacity) * tf.Duration())
	seed, err := src.GetChartLast(ctx, tf, start, symbol)
	if err != nil {
		return nil, fmt.Errorf("chart %s %s: seed history: %w", symbol, tf, err)
	}
	for i := 1; i < len(seed); i++ {
		if !seed[i].Timestamp.After(seed[i-1].Timestamp) {
			return nil, fmt.Errorf("chart %s %s: seed history out of order at index %d", symbol, tf, i)
		}
	}
	if len(seed) > capacity {
		seed = seed[len(seed)-capacity:]
	}

	a := &Aggregator{
		symbol:   symbol,
		tf:       tf,
		capacity: capacity,
		bus:      bus,
		window:   append(make([]types.Candle, 0, capacity), seed...),
	}

	if err := bus.Subscribe(events.TopicTick, a.onTick); err != nil {
		return nil, fmt.Errorf("chart %s %s: subscribe: %w", symbol, tf, err)
	}
	if err := src.SubscribeTickPrices(symbol); err != nil {
		return nil, fmt.Errorf("chart %s %s: tick subscription: %w", symbol, tf, err)
	}

	return a, nil
}

// onTick applies one tick to the window. Ticks for other symbols are
// ignored; the bus carries every subscribed symbol on one topic.
func (a *Aggregator) onTick(tick types.Tick) {
	if tick.Symbol != a.symbol {
		return
	}

	bucket := BucketTime(tick.Timestamp, a.tf)

	a.mu.Lock()
	a.lastTick = tick
	a.hasTick = true

	opened := false
	if len(a.window) == 0 || !a.window[len(a.window)-1].Timestamp.Equal(bucket) {
		a.window = append(a.window, types.Candle{
			Open:      tick.Bid,
			High:      tick.Bid,
			Low:       tick.Bid,
			Close:     tick.Bid,
			Volume:    tick.AskVolume + tick.BidVolume,
			AskVolume: tick.AskVolume,
			BidVolume: tick.BidVolume,
			Timestamp: bucket,
			Ticks:     []types.Tick{tick},
		})
		if len(a.window) > a.capacity {
			a.window = a.window[1:]
		}
		opened = true
	} else {
		c := &a.window[len(a.window)-1]
		c.Ticks = append(c.Ticks, tick)
		c.Close = tick.Bid
		c.AskVolume += tick.AskVolume
		c.BidVolume += tick.BidVolume
		c.Volume += tick.AskVolume + tick.BidVolume
		// deliberate approximation: high/low only follow the close,
		// intrabar extremes between ticks are not rescanned
		if c.Close >= c.High {
			c.High = c.Close
		}
		if c.Close <= c.Low {
			c.Low = c.Close
		}
	}
	current := a.window[len(a.window)-1]
	a.mu.Unlock()

	if opened {
		a.bus.Publish(events.TopicCandleOpened, a.symbol, current)
	} else {
		a.bus.Publish(events.TopicTickProcessed, tick)
	}
}

func (a *Aggregator) Symbol() string             { return a.symbol }
func (a *Aggregator) Timeframe() types.Timeframe { return a.tf }

func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.window)
}

// Current returns the open candle, the last entry of the window.
func (a *Aggregator) Current() (types.Candle, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.window) == 0 {
		return types.Candle{}, ErrNoCandles
	}
	return a.window[len(a.window)-1], nil
}

// LastCompleted returns the most recent closed candle.
func (a *Aggregator) LastCompleted() (types.Candle, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.window) < 2 {
		return types.Candle{}, ErrNoCandles
	}
	return a.window[len(a.window)-2], nil
}

// LastPrice returns the most recent tick seen, regardless of bucket.
func (a *Aggregator) LastPrice() (types.Tick, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.hasTick {
		return types.Tick{}, errors.New("no ticks observed")
	}
	return a.lastTick, nil
}

// Snapshot copies the window, oldest first.
func (a *Aggregator) Snapshot() []types.Candle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]types.Candle, len(a.window))
	copy(out, a.window)
	return out
}
