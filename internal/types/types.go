package types

import "time"

// Tick is a single quote update pushed by the broker. Immutable.
type Tick struct {
	Symbol    string
	Ask       float64
	AskVolume float64
	Bid       float64
	BidVolume float64
	Timestamp time.Time // UTC
}

func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// Candle is one OHLC bucket. The last candle of a chart window is open and
// mutated in place; everything before it is treated as closed.
type Candle struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	AskVolume float64
	BidVolume float64
	Timestamp time.Time // bucket start, UTC
	Ticks     []Tick
}

// SymbolInfo is static per-symbol metadata, cached until explicitly refreshed.
type SymbolInfo struct {
	Symbol         string
	Category       string
	CategoryName   string
	ContractSize   int
	Currency       string
	CurrencyProfit string
	TickSize       float64
	Leverage       float64
	Precision      int
	Bid            float64
	Ask            float64
	Description    string
}

// TradeRecord describes a position, open or historical.
type TradeRecord struct {
	Order       int
	Order2      int
	Position    int
	Symbol      string
	Operation   Operation
	Volume      float64
	OpenPrice   float64
	OpenTime    time.Time
	ClosePrice  float64
	CloseTime   time.Time
	Closed      bool
	StopLoss    float64
	TakeProfit  float64
	Profit      float64
	Comment     string
	CloseReason CloseReason
}

type BalanceRecord struct {
	Balance     float64
	Credit      float64
	Equity      float64
	Margin      float64
	MarginFree  float64
	MarginLevel float64
}

type NewsRecord struct {
	Key      string
	Title    string
	Body     string // raw, may contain HTML
	BodyText string // plain text extracted from Body
	Time     time.Time
}

// HoursWindow is an open/close window within one day of the week.
// From and To are offsets from midnight.
type HoursWindow struct {
	Day  time.Weekday
	From time.Duration
	To   time.Duration
}

type TradeHourRecord struct {
	Symbol  string
	Quotes  []HoursWindow
	Trading []HoursWindow
}

type LoginResponse struct {
	StreamSessionID string
}

type UserDataRecord struct {
	Currency           string
	Leverage           float64
	LeverageMultiplier float64
	Group              string
	CompanyUnit        int
	SpreadType         string
	TrailingStop       bool
}

type CalendarRecord struct {
	Country  string
	Title    string
	Impact   string
	Period   string
	Current  string
	Forecast string
	Previous string
	Time     time.Time
}

type KeepAliveRecord struct {
	Timestamp time.Time
}

type ProfitRecord struct {
	Order    int
	Order2   int
	Position int
	Profit   float64
}

type TradeStatusRecord struct {
	Order         int
	RequestStatus RequestStatus
	Message       string
	Price         float64
	CustomComment string
}
