package connector

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"fxconnect/internal/events"
	"fxconnect/internal/interfaces"
	"fxconnect/internal/logger"
	"fxconnect/internal/protocol"
	"fxconnect/internal/trace"
	"fxconnect/internal/types"
)

// Connection states. Login is a separate gate on top of Connected.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// Executor composes the command builder, the two connections and the
// response adapter into the public broker API. The command socket carries
// one correlated request/response at a time; subscriptions are
// fire-and-forget sends on the streaming socket.
type Executor struct {
	cmd     interfaces.RequestConn
	stream  *Stream
	adapter *protocol.Adapter
	bus     *events.Bus
	tags    *protocol.TagSource

	requestTimeout time.Duration

	state atomic.Int32

	mu       sync.Mutex
	loggedIn bool
	session  string

	// callMu serializes command exchanges; the caller of the in-flight
	// command suspends until its correlated response arrives.
	callMu sync.Mutex

	registry *subscriptionRegistry
}

var _ interfaces.BrokerAPI = (*Executor)(nil)

func NewExecutor(cmd interfaces.RequestConn, stream *Stream, adapter *protocol.Adapter, bus *events.Bus, requestTimeout time.Duration) *Executor {
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	return &Executor{
		cmd:            cmd,
		stream:         stream,
		adapter:        adapter,
		bus:            bus,
		tags:           protocol.NewTagSource(),
		requestTimeout: requestTimeout,
		registry:       newSubscriptionRegistry(),
	}
}

// Connect establishes the command socket. The streaming socket comes up on
// login, once a stream session id exists.
func (e *Executor) Connect(ctx context.Context) error {
	if e.IsConnected() {
		return nil
	}
	e.state.Store(int32(StateConnecting))
	if err := e.cmd.Connect(ctx); err != nil {
		e.state.Store(int32(StateDisconnected))
		return err
	}
	e.state.Store(int32(StateConnected))
	return nil
}

// Close drops both connections. All streaming dispatch stops until Connect
// and Login run again.
func (e *Executor) Close() error {
	e.mu.Lock()
	e.loggedIn = false
	e.session = ""
	e.mu.Unlock()
	e.state.Store(int32(StateDisconnected))

	var err error
	if e.stream != nil {
		err = e.stream.Close()
	}
	if cerr := e.cmd.Close(); cerr != nil {
		err = cerr
	}
	return err
}

// IsConnected is a non-blocking state read.
func (e *Executor) IsConnected() bool {
	return State(e.state.Load()) == StateConnected && e.cmd.IsConnected()
}

func (e *Executor) sessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// gate rejects commands issued before a successful login, before any
// network I/O happens.
func (e *Executor) gate(op string) error {
	if !e.IsConnected() {
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loggedIn {
		return fmt.Errorf("%s: %w", op, ErrNotLoggedIn)
	}
	return nil
}

// call sends one correlated command and waits for the response bearing the
// same tag. Responses with a stale tag belong to correlations a previous
// caller abandoned; they are skipped. Cancelling ctx abandons only this
// correlation, it does not close the connection.
func (e *Executor) call(ctx context.Context, op string, payload []byte, tag int) (*protocol.Response, error) {
	if !e.IsConnected() {
		return nil, fmt.Errorf("%s: %w", op, ErrNotConnected)
	}

	ctx, span := trace.StartSpan(ctx, op)
	defer span.End()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.requestTimeout)
		defer cancel()
	}

	e.callMu.Lock()
	defer e.callMu.Unlock()

	want := strconv.Itoa(tag)
	raw, err := e.cmd.SendReceive(ctx, payload)
	for {
		if err != nil {
			e.observeConnection()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		resp, perr := protocol.ParseResponse(raw)
		if perr != nil {
			return nil, fmt.Errorf("%s: %w", op, perr)
		}
		if resp.CustomTag == want {
			if rerr := resp.Err(); rerr != nil {
				return nil, fmt.Errorf("%s: %w", op, rerr)
			}
			return resp, nil
		}
		logger.Debug(ctx, "skipping response for abandoned correlation",
			"op", op, "tag", resp.CustomTag, "want", want)
		raw, err = e.cmd.Receive(ctx)
	}
}

// observeConnection downgrades executor state after a transport failure so
// later calls are rejected before I/O.
func (e *Executor) observeConnection() {
	if !e.cmd.IsConnected() {
		e.state.Store(int32(StateDisconnected))
		e.mu.Lock()
		e.loggedIn = false
		e.mu.Unlock()
	}
}

// Login authenticates, brings the streaming socket up with the returned
// session id, and replays any registered subscriptions (reconnect path).
func (e *Executor) Login(ctx context.Context, creds interfaces.Credentials) (types.LoginResponse, error) {
	tag := e.tags.Next()
	payload, err := protocol.LoginCommand(creds.UserID, creds.Password, creds.AppName, tag)
	if err != nil {
		return types.LoginResponse{}, err
	}
	resp, err := e.call(ctx, "xapi.login", payload, tag)
	if err != nil {
		return types.LoginResponse{}, err
	}

	e.mu.Lock()
	e.loggedIn = true
	e.session = resp.StreamSessionID
	e.mu.Unlock()

	if e.stream != nil {
		if err := e.stream.Connect(ctx); err != nil {
			return types.LoginResponse{}, fmt.Errorf("xapi.login: stream: %w", err)
		}
		e.resubscribe(ctx)
	}

	return types.LoginResponse{StreamSessionID: resp.StreamSessionID}, nil
}

func (e *Executor) Logout(ctx context.Context) error {
	if err := e.gate("xapi.logout"); err != nil {
		return err
	}
	tag := e.tags.Next()
	payload, err := protocol.LogoutCommand(tag)
	if err != nil {
		return err
	}
	if _, err := e.call(ctx, "xapi.logout", payload, tag); err != nil {
		return err
	}
	e.mu.Lock()
	e.loggedIn = false
	e.session = ""
	e.mu.Unlock()
	return nil
}

// Ping is allowed before login.
func (e *Executor) Ping(ctx context.Context) error {
	tag := e.tags.Next()
	payload, err := protocol.PingCommand(tag)
	if err != nil {
		return err
	}
	_, err = e.call(ctx, "xapi.ping", payload, tag)
	return err
}

func (e *Executor) GetAllSymbols(ctx context.Context) ([]types.SymbolInfo, error) {
	if err := e.gate("xapi.get_all_symbols"); err != nil {
		return nil, err
	}
	tag := e.tags.Next()
	payload, err := protocol.AllSymbolsCommand(tag)
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, "xapi.get_all_symbols", payload, tag)
	if err != nil {
		return nil, err
	}
	return e.adapter.SymbolInfos(resp.ReturnData)
}

func (e *Executor) GetSymbol(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	if err := e.gate("xapi.get_symbol"); err != nil {
		return types.SymbolInfo{}, err
	}
	tag := e.tags.Next()
	payload, err := protocol.SymbolCommand(symbol, tag)
	if err != nil {
		return types.SymbolInfo{}, err
	}
	resp, err := e.call(ctx, "xapi.get_symbol", payload, tag)
	if err != nil {
		return types.SymbolInfo{}, err
	}
	return e.adapter.SymbolInfo(resp.ReturnData)
}

func (e *Executor) GetCalendar(ctx context.Context) ([]types.CalendarRecord, error) {
	if err := e.gate("xapi.get_calendar"); err != nil {
		return nil, err
	}
	tag := e.tags.Next()
	payload, err := protocol.CalendarCommand(tag)
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, "xapi.get_calendar", payload, tag)
	if err != nil {
		return nil, err
	}
	return e.adapter.Calendar(resp.ReturnData)
}

func (e *Executor) GetChartLast(ctx context.Context, tf types.Timeframe, start time.Time, symbol string) ([]types.Candle, error) {
	if err := e.gate("xapi.get_chart_last"); err != nil {
		return nil, err
	}
	tag := e.tags.Next()
	payload, err := protocol.ChartLastCommand(tf, start, symbol, tag)
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, "xapi.get_chart_last", payload, tag)
	if err != nil {
		return nil, err
	}
	return e.adapter.Candles(resp.ReturnData)
}

func (e *Executor) GetChartRange(ctx context.Context, tf types.Timeframe, start, end time.Time, symbol string) ([]types.Candle, error) {
	if err := e.gate("xapi.get_chart_range"); err != nil {
		return nil, err
	}
	tag := e.tags.Next()
	payload, err := protocol.ChartRangeCommand(tf, start, end, symbol, tag)
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, "xapi.get_chart_range", payload, tag)
	if err != nil {
		return nil, err
	}
	return e.adapter.Candles(resp.ReturnData)
}

func (e *Executor) GetMarginLevel(ctx context.Context) (types.BalanceRecord, error) {
	if err := e.gate("xapi.get_margin_level"); err != nil {
		return types.BalanceRecord{}, err
	}
	tag := e.tags.Next()
	payload, err := protocol.MarginLevelCommand(tag)
	if err != nil {
		return types.BalanceRecord{}, err
	}
	resp, err := e.call(ctx, "xapi.get_margin_level", payload, tag)
	if err != nil {
		return types.BalanceRecord{}, err
	}
	return e.adapter.Balance(resp.ReturnData)
}

func (e *Executor) GetNews(ctx context.Context, start, end time.Time) ([]types.NewsRecord, error) {
	if err := e.gate("xapi.get_news"); err != nil {
		return nil, err
	}
	tag := e.tags.Next()
	payload, err := protocol.NewsCommand(start, end, tag)
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, "xapi.get_news", payload, tag)
	if err != nil {
		return nil, err
	}
	return e.adapter.NewsRecords(resp.ReturnData)
}

func (e *Executor) GetCurrentUserData(ctx context.Context) (types.UserDataRecord, error) {
	if err := e.gate("xapi.get_current_user_data"); err != nil {
		return types.UserDataRecord{}, err
	}
	tag := e.tags.Next()
	payload, err := protocol.CurrentUserDataCommand(tag)
	if err != nil {
		return types.UserDataRecord{}, err
	}
	resp, err := e.call(ctx, "xapi.get_current_user_data", payload, tag)
	if err != nil {
		return types.UserDataRecord{}, err
	}
	return e.adapter.UserData(resp.ReturnData)
}

func (e *Executor) GetTickPrices(ctx context.Context, symbols []string, since time.Time) ([]types.Tick, error) {
	if err := e.gate("xapi.get_tick_prices"); err != nil {
		return nil, err
	}
	tag := e.tags.Next()
	payload, err := protocol.TickPricesCommand(symbols, since, tag)
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, "xapi.get_tick_prices", payload, tag)
	if err != nil {
		return nil, err
	}
	return e.adapter.Ticks(resp.ReturnData)
}

func (e *Executor) GetTradesHistory(ctx context.Context, start, end time.Time) ([]types.TradeRecord, error) {
	if err := e.gate("xapi.get_trades_history"); err != nil {
		return nil, err
	}
	tag := e.tags.Next()
	payload, err := protocol.TradesHistoryCommand(start, end, tag)
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, "xapi.get_trades_history", payload, tag)
	if err != nil {
		return nil, err
	}
	return e.adapter.TradeRecords(resp.ReturnData)
}

func (e *Executor) GetTrades(ctx context.Context, openedOnly bool) ([]types.TradeRecord, error) {
	if err := e.gate("xapi.get_trades"); err != nil {
		return nil, err
	}
	tag := e.tags.Next()
	payload, err := protocol.TradesCommand(openedOnly, tag)
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, "xapi.get_trades", payload, tag)
	if err != nil {
		return nil, err
	}
	return e.adapter.TradeRecords(resp.ReturnData)
}

func (e *Executor) GetTradingHours(ctx context.Context, symbols []string) ([]types.TradeHourRecord, error) {
	if err := e.gate("xapi.get_trading_hours"); err != nil {
		return nil, err
	}
	tag := e.tags.Next()
	payload, err := protocol.TradingHoursCommand(symbols, tag)
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, "xapi.get_trading_hours", payload, tag)
	if err != nil {
		return nil, err
	}
	return e.adapter.TradingHours(resp.ReturnData)
}

func (e *Executor) tradeTransaction(ctx context.Context, op string, tc types.TradeCommand, trade types.TradeRecord, price float64) (int, error) {
	if err := e.gate(op); err != nil {
		return 0, err
	}
	tag := e.tags.Next()
	payload, err := protocol.TradeTransactionCommand(tc, trade, price, tag)
	if err != nil {
		return 0, err
	}
	resp, err := e.call(ctx, op, payload, tag)
	if err != nil {
		return 0, err
	}
	return e.adapter.OrderNumber(resp.ReturnData)
}

// OpenTrade opens a position at the given price and returns the order
// number to poll with GetTradeStatus.
func (e *Executor) OpenTrade(ctx context.Context, trade types.TradeRecord, price float64) (int, error) {
	return e.tradeTransaction(ctx, "xapi.open_trade", types.OpenTrade, trade, price)
}

func (e *Executor) UpdateTrade(ctx context.Context, trade types.TradeRecord, price float64) (int, error) {
	return e.tradeTransaction(ctx, "xapi.update_trade", types.ModifyTrade, trade, price)
}

func (e *Executor) CloseTrade(ctx context.Context, trade types.TradeRecord, price float64) (int, error) {
	return e.tradeTransaction(ctx, "xapi.close_trade", types.CloseTrade, trade, price)
}

func (e *Executor) GetTradeStatus(ctx context.Context, order int) (types.TradeStatusRecord, error) {
	if err := e.gate("xapi.trade_status"); err != nil {
		return types.TradeStatusRecord{}, err
	}
	tag := e.tags.Next()
	payload, err := protocol.TradeTransactionStatusCommand(order, tag)
	if err != nil {
		return types.TradeStatusRecord{}, err
	}
	resp, err := e.call(ctx, "xapi.trade_status", payload, tag)
	if err != nil {
		return types.TradeStatusRecord{}, err
	}
	return e.adapter.TradeStatus(resp.ReturnData)
}
