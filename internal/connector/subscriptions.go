package connector

import (
	"context"
	"fmt"

	"fxconnect/internal/logger"
	"fxconnect/internal/protocol"
)

// Stream kinds as they appear in push frames; also the registry keys used
// to replay subscriptions after a reconnect.
const (
	kindTickPrices  = "tickPrices"
	kindCandle      = "candle"
	kindTrade       = "trade"
	kindTradeStatus = "tradeStatus"
	kindProfit      = "profit"
	kindBalance     = "balance"
	kindNews        = "news"
	kindKeepAlive   = "keepAlive"
)

func (e *Executor) streamSend(op string, payload []byte, err error) error {
	if err != nil {
		return err
	}
	if e.stream == nil {
		return fmt.Errorf("%s: no streaming connection", op)
	}
	if err := e.stream.Send(payload); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// subscribe sends a fire-and-forget subscription and records it for replay.
func (e *Executor) subscribe(op, kind, symbol string, payload []byte, err error) error {
	if gerr := e.gate(op); gerr != nil {
		return gerr
	}
	if serr := e.streamSend(op, payload, err); serr != nil {
		return serr
	}
	e.registry.add(kind, symbol)
	return nil
}

func (e *Executor) unsubscribe(op, kind, symbol string, payload []byte, err error) error {
	if serr := e.streamSend(op, payload, err); serr != nil {
		return serr
	}
	e.registry.remove(kind, symbol)
	return nil
}

func (e *Executor) SubscribeTickPrices(symbol string) error {
	payload, err := protocol.SubscribeTickPricesCommand(e.sessionID(), symbol)
	return e.subscribe("xapi.subscribe_ticks", kindTickPrices, symbol, payload, err)
}

func (e *Executor) UnsubscribeTickPrices(symbol string) error {
	payload, err := protocol.UnsubscribeTickPricesCommand(symbol)
	return e.unsubscribe("xapi.unsubscribe_ticks", kindTickPrices, symbol, payload, err)
}

func (e *Executor) SubscribeCandles(symbol string) error {
	payload, err := protocol.SubscribeCandlesCommand(e.sessionID(), symbol)
	return e.subscribe("xapi.subscribe_candles", kindCandle, symbol, payload, err)
}

func (e *Executor) UnsubscribeCandles(symbol string) error {
	payload, err := protocol.UnsubscribeCandlesCommand(symbol)
	return e.unsubscribe("xapi.unsubscribe_candles", kindCandle, symbol, payload, err)
}

func (e *Executor) SubscribeBalance() error {
	payload, err := protocol.SubscribeBalanceCommand(e.sessionID())
	return e.subscribe("xapi.subscribe_balance", kindBalance, "", payload, err)
}

func (e *Executor) UnsubscribeBalance() error {
	payload, err := protocol.UnsubscribeBalanceCommand()
	return e.unsubscribe("xapi.unsubscribe_balance", kindBalance, "", payload, err)
}

func (e *Executor) SubscribeNews() error {
	payload, err := protocol.SubscribeNewsCommand(e.sessionID())
	return e.subscribe("xapi.subscribe_news", kindNews, "", payload, err)
}

func (e *Executor) UnsubscribeNews() error {
	payload, err := protocol.UnsubscribeNewsCommand()
	return e.unsubscribe("xapi.unsubscribe_news", kindNews, "", payload, err)
}

func (e *Executor) SubscribeProfits() error {
	payload, err := protocol.SubscribeProfitsCommand(e.sessionID())
	return e.subscribe("xapi.subscribe_profits", kindProfit, "", payload, err)
}

func (e *Executor) UnsubscribeProfits() error {
	payload, err := protocol.UnsubscribeProfitsCommand()
	return e.unsubscribe("xapi.unsubscribe_profits", kindProfit, "", payload, err)
}

func (e *Executor) SubscribeTrades() error {
	payload, err := protocol.SubscribeTradesCommand(e.sessionID())
	return e.subscribe("xapi.subscribe_trades", kindTrade, "", payload, err)
}

func (e *Executor) UnsubscribeTrades() error {
	payload, err := protocol.UnsubscribeTradesCommand()
	return e.unsubscribe("xapi.unsubscribe_trades", kindTrade, "", payload, err)
}

func (e *Executor) SubscribeTradeStatus() error {
	payload, err := protocol.SubscribeTradeStatusCommand(e.sessionID())
	return e.subscribe("xapi.subscribe_trade_status", kindTradeStatus, "", payload, err)
}

func (e *Executor) UnsubscribeTradeStatus() error {
	payload, err := protocol.UnsubscribeTradeStatusCommand()
	return e.unsubscribe("xapi.unsubscribe_trade_status", kindTradeStatus, "", payload, err)
}

func (e *Executor) SubscribeKeepAlive() error {
	payload, err := protocol.SubscribeKeepAliveCommand(e.sessionID())
	return e.subscribe("xapi.subscribe_keep_alive", kindKeepAlive, "", payload, err)
}

func (e *Executor) UnsubscribeKeepAlive() error {
	payload, err := protocol.UnsubscribeKeepAliveCommand()
	return e.unsubscribe("xapi.unsubscribe_keep_alive", kindKeepAlive, "", payload, err)
}

// PingStream keeps the push session alive.
func (e *Executor) PingStream() error {
	payload, err := protocol.StreamPingCommand(e.sessionID())
	return e.streamSend("xapi.stream_ping", payload, err)
}

// resubscribe replays the subscription registry after a reconnect.
func (e *Executor) resubscribe(ctx context.Context) {
	session := e.sessionID()
	for _, key := range e.registry.list() {
		var (
			payload []byte
			err     error
		)
		switch key.kind {
		case kindTickPrices:
			payload, err = protocol.SubscribeTickPricesCommand(session, key.symbol)
		case kindCandle:
			payload, err = protocol.SubscribeCandlesCommand(session, key.symbol)
		case kindBalance:
			payload, err = protocol.SubscribeBalanceCommand(session)
		case kindNews:
			payload, err = protocol.SubscribeNewsCommand(session)
		case kindProfit:
			payload, err = protocol.SubscribeProfitsCommand(session)
		case kindTrade:
			payload, err = protocol.SubscribeTradesCommand(session)
		case kindTradeStatus:
			payload, err = protocol.SubscribeTradeStatusCommand(session)
		case kindKeepAlive:
			payload, err = protocol.SubscribeKeepAliveCommand(session)
		default:
			continue
		}
		if err == nil {
			err = e.stream.Send(payload)
		}
		if err != nil {
			logger.ErrorWithErr(ctx, "resubscribe failed", err,
				"kind", key.kind, "symbol", key.symbol)
		}
	}
}
