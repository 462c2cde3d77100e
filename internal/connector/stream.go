package connector

import (
	"context"
	"errors"
	"sync"

	"fxconnect/internal/events"
	"fxconnect/internal/logger"
	"fxconnect/internal/protocol"
)

// Stream is the push connection. Everything inbound is unsolicited; frames
// are decoded and fanned out as typed events on the bus. There is no tag
// correlation on this socket.
type Stream struct {
	tr      *Transport
	adapter *protocol.Adapter
	bus     *events.Bus

	mu      sync.Mutex
	looping bool
	wg      sync.WaitGroup
}

func NewStream(tr *Transport, adapter *protocol.Adapter, bus *events.Bus) *Stream {
	return &Stream{tr: tr, adapter: adapter, bus: bus}
}

// Connect establishes the socket and starts the read loop.
func (s *Stream) Connect(ctx context.Context) error {
	if err := s.tr.Connect(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.looping {
		return nil
	}
	s.looping = true
	s.wg.Add(1)
	go s.readLoop()
	return nil
}

func (s *Stream) Send(msg []byte) error {
	return s.tr.Send(msg)
}

func (s *Stream) IsConnected() bool {
	return s.tr.IsConnected()
}

// Close stops the socket; the read loop observes the error and exits.
func (s *Stream) Close() error {
	err := s.tr.Close()
	s.wg.Wait()
	return err
}

// readLoop runs until the socket fails or closes. A socket error here fails
// the connection as a whole; reconnect and resubscribe decisions belong to
// the executor, not the transport.
func (s *Stream) readLoop() {
	defer func() {
		s.mu.Lock()
		s.looping = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	ctx := context.Background()
	for {
		raw, err := s.tr.Receive(ctx)
		if err != nil {
			if !errors.Is(err, ErrNotConnected) {
				logger.Warn(ctx, "stream read loop stopped", "error", err)
			}
			return
		}
		s.handleMessage(raw)
	}
}

// handleMessage dispatches one push frame to its typed event topic.
// Handlers run synchronously, so per-symbol arrival order is preserved.
func (s *Stream) handleMessage(raw []byte) {
	ctx := context.Background()

	frame, err := protocol.ParseStreamFrame(raw)
	if err != nil {
		logger.Warn(ctx, "dropping unreadable stream frame", "error", err)
		return
	}

	switch frame.Command {
	case "tickPrices":
		tick, err := s.adapter.Tick(frame.Data)
		if err != nil {
			logger.Warn(ctx, "bad tick frame", "error", err)
			return
		}
		s.bus.Publish(events.TopicTick, tick)
	case "candle":
		candle, symbol, err := s.adapter.StreamCandle(frame.Data)
		if err != nil {
			logger.Warn(ctx, "bad candle frame", "error", err)
			return
		}
		s.bus.Publish(events.TopicCandle, symbol, candle)
	case "trade":
		trade, err := s.adapter.TradeRecord(frame.Data)
		if err != nil {
			logger.Warn(ctx, "bad trade frame", "error", err)
			return
		}
		s.bus.Publish(events.TopicTrade, trade)
	case "tradeStatus":
		status, err := s.adapter.TradeStatus(frame.Data)
		if err != nil {
			logger.Warn(ctx, "bad trade status frame", "error", err)
			return
		}
		s.bus.Publish(events.TopicTradeStatus, status)
	case "profit":
		profit, err := s.adapter.Profit(frame.Data)
		if err != nil {
			logger.Warn(ctx, "bad profit frame", "error", err)
			return
		}
		s.bus.Publish(events.TopicProfit, profit)
	case "balance":
		balance, err := s.adapter.StreamBalance(frame.Data)
		if err != nil {
			logger.Warn(ctx, "bad balance frame", "error", err)
			return
		}
		s.bus.Publish(events.TopicBalance, balance)
	case "news":
		news, err := s.adapter.News(frame.Data)
		if err != nil {
			logger.Warn(ctx, "bad news frame", "error", err)
			return
		}
		s.bus.Publish(events.TopicNews, news)
	case "keepAlive":
		ka, err := s.adapter.KeepAlive(frame.Data)
		if err != nil {
			logger.Warn(ctx, "bad keep-alive frame", "error", err)
			return
		}
		s.bus.Publish(events.TopicKeepAlive, ka)
	default:
		logger.Debug(ctx, "ignoring unknown stream frame", "command", frame.Command)
	}
}
