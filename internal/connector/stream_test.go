package connector

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxconnect/internal/events"
	"fxconnect/internal/interfaces"
	"fxconnect/internal/protocol"
	"fxconnect/internal/types"
)

func newTestStream(t *testing.T, bus *events.Bus) (*Stream, net.Conn) {
	t.Helper()
	tr, peer := pipeTransport(t, bus)
	s := NewStream(tr, protocol.NewAdapter(), bus)
	t.Cleanup(func() { _ = s.Close() })
	return s, peer
}

func writeFrame(t *testing.T, peer net.Conn, frame string) {
	t.Helper()
	require.NoError(t, peer.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := peer.Write([]byte(frame + "\n"))
	require.NoError(t, err)
}

func TestStreamDispatchesTickFrames(t *testing.T) {
	bus := events.NewBus()
	s, peer := newTestStream(t, bus)

	ticks := make(chan types.Tick, 4)
	require.NoError(t, bus.Subscribe(events.TopicTick, func(tick types.Tick) {
		ticks <- tick
	}))

	require.NoError(t, s.Connect(context.Background()))
	writeFrame(t, peer, `{"command":"tickPrices","data":{"symbol":"EURUSD","ask":1.0791,"bid":1.0789,"timestamp":1709287200000}}`)

	select {
	case tick := <-ticks:
		assert.Equal(t, "EURUSD", tick.Symbol)
		assert.Equal(t, 1.0789, tick.Bid)
	case <-time.After(2 * time.Second):
		t.Fatal("tick frame was not dispatched")
	}

	// exactly one event per frame
	select {
	case tick := <-ticks:
		t.Fatalf("unexpected extra tick event: %+v", tick)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamDispatchesTypedFrames(t *testing.T) {
	bus := events.NewBus()
	s, peer := newTestStream(t, bus)

	candles := make(chan types.Candle, 1)
	require.NoError(t, bus.Subscribe(events.TopicCandle, func(symbol string, c types.Candle) {
		candles <- c
	}))
	keepAlives := make(chan types.KeepAliveRecord, 1)
	require.NoError(t, bus.Subscribe(events.TopicKeepAlive, func(ka types.KeepAliveRecord) {
		keepAlives <- ka
	}))

	require.NoError(t, s.Connect(context.Background()))

	// unknown and malformed frames are dropped without killing the loop
	writeFrame(t, peer, `{"command":"somethingNew","data":{}}`)
	writeFrame(t, peer, `this is not json`)
	writeFrame(t, peer, `{"command":"candle","data":{"symbol":"EURUSD","ctm":1709287200000,"open":1.0789,"high":1.0795,"low":1.0785,"close":1.0790,"vol":3}}`)
	writeFrame(t, peer, `{"command":"keepAlive","data":{"timestamp":1709287205000}}`)

	select {
	case c := <-candles:
		assert.Equal(t, 1.0790, c.Close)
	case <-time.After(2 * time.Second):
		t.Fatal("candle frame was not dispatched")
	}
	select {
	case ka := <-keepAlives:
		assert.Equal(t, time.UnixMilli(1709287205000).UTC(), ka.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive frame was not dispatched")
	}
}

func TestSubscriptionReplayAfterReconnect(t *testing.T) {
	bus := events.NewBus()
	tr, peer := pipeTransport(t, bus)
	stream := NewStream(tr, protocol.NewAdapter(), bus)
	t.Cleanup(func() { _ = stream.Close() })

	fc := &fakeConn{}
	e := NewExecutor(fc, stream, protocol.NewAdapter(), bus, time.Second)
	require.NoError(t, e.Connect(context.Background()))

	frames := make(chan map[string]interface{}, 8)
	go func() {
		r := bufio.NewReader(peer)
		for {
			line, err := r.ReadBytes('\n')
			if err != nil {
				return
			}
			var m map[string]interface{}
			if json.Unmarshal(line, &m) == nil {
				frames <- m
			}
		}
	}()

	next := func() map[string]interface{} {
		select {
		case m := <-frames:
			return m
		case <-time.After(2 * time.Second):
			t.Fatal("no frame on streaming socket")
			return nil
		}
	}

	login(t, e, fc)

	require.NoError(t, e.SubscribeTickPrices("EURUSD"))
	m := next()
	assert.Equal(t, "getTickPrices", m["command"])
	assert.Equal(t, "sess-1", m["streamSessionId"])
	assert.Equal(t, "EURUSD", m["symbol"])

	require.NoError(t, e.SubscribeBalance())
	assert.Equal(t, "getBalance", next()["command"])

	// second login replays the registered subscriptions
	fc.enqueue(`{"status":true,"customTag":"2","streamSessionId":"sess-2"}`)
	_, err := e.Login(context.Background(), interfaces.Credentials{UserID: "1000", Password: "pw"})
	require.NoError(t, err)

	replayed := map[string]bool{}
	for i := 0; i < 2; i++ {
		m := next()
		replayed[m["command"].(string)] = true
		assert.Equal(t, "sess-2", m["streamSessionId"], "replay carries the new session")
	}
	assert.True(t, replayed["getTickPrices"])
	assert.True(t, replayed["getBalance"])
}

func TestUnsubscribeDropsRegistryEntry(t *testing.T) {
	bus := events.NewBus()
	tr, peer := pipeTransport(t, bus)
	stream := NewStream(tr, protocol.NewAdapter(), bus)
	t.Cleanup(func() { _ = stream.Close() })

	fc := &fakeConn{}
	e := NewExecutor(fc, stream, protocol.NewAdapter(), bus, time.Second)
	require.NoError(t, e.Connect(context.Background()))

	go func() {
		r := bufio.NewReader(peer)
		for {
			if _, err := r.ReadBytes('\n'); err != nil {
				return
			}
		}
	}()

	login(t, e, fc)
	require.NoError(t, e.SubscribeNews())
	require.NoError(t, e.UnsubscribeNews())
	assert.Empty(t, e.registry.list())
}
