package interfaces

import (
	"context"
	"time"

	"fxconnect/internal/types"
)

// Credentials for the broker login command. Never logged unmasked.
type Credentials struct {
	UserID   string
	Password string
	AppName  string
}

// ChartSource is the slice of the broker API the candle aggregator needs.
type ChartSource interface {
	GetChartLast(ctx context.Context, tf types.Timeframe, start time.Time, symbol string) ([]types.Candle, error)
	SubscribeTickPrices(symbol string) error
}

// BrokerAPI is the full command surface of the connector. All calls are
// request/response over the command socket except the Subscribe/Unsubscribe
// pairs, which are fire-and-forget sends on the streaming socket; their
// results arrive as push events on the shared bus.
type BrokerAPI interface {
	ChartSource

	Connect(ctx context.Context) error
	Close() error
	IsConnected() bool

	Login(ctx context.Context, creds Credentials) (types.LoginResponse, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error

	GetAllSymbols(ctx context.Context) ([]types.SymbolInfo, error)
	GetSymbol(ctx context.Context, symbol string) (types.SymbolInfo, error)
	GetCalendar(ctx context.Context) ([]types.CalendarRecord, error)
	GetChartRange(ctx context.Context, tf types.Timeframe, start, end time.Time, symbol string) ([]types.Candle, error)
	GetMarginLevel(ctx context.Context) (types.BalanceRecord, error)
	GetNews(ctx context.Context, start, end time.Time) ([]types.NewsRecord, error)
	GetCurrentUserData(ctx context.Context) (types.UserDataRecord, error)
	GetTickPrices(ctx context.Context, symbols []string, since time.Time) ([]types.Tick, error)
	GetTradesHistory(ctx context.Context, start, end time.Time) ([]types.TradeRecord, error)
	GetTrades(ctx context.Context, openedOnly bool) ([]types.TradeRecord, error)
	GetTradingHours(ctx context.Context, symbols []string) ([]types.TradeHourRecord, error)

	OpenTrade(ctx context.Context, trade types.TradeRecord, price float64) (int, error)
	UpdateTrade(ctx context.Context, trade types.TradeRecord, price float64) (int, error)
	CloseTrade(ctx context.Context, trade types.TradeRecord, price float64) (int, error)
	GetTradeStatus(ctx context.Context, order int) (types.TradeStatusRecord, error)

	UnsubscribeTickPrices(symbol string) error
	SubscribeCandles(symbol string) error
	UnsubscribeCandles(symbol string) error
	SubscribeBalance() error
	UnsubscribeBalance() error
	SubscribeNews() error
	UnsubscribeNews() error
	SubscribeProfits() error
	UnsubscribeProfits() error
	SubscribeTrades() error
	UnsubscribeTrades() error
	SubscribeTradeStatus() error
	UnsubscribeTradeStatus() error
	SubscribeKeepAlive() error
	UnsubscribeKeepAlive() error
	PingStream() error
}
