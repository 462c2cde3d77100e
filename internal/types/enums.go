package types

import (
	"fmt"
	"time"
)

// Timeframe is the candle bucket size. Wire period codes live in the
// protocol package; only the duration semantics live here.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinutes
	FifteenMinutes
	ThirtyMinutes
	OneHour
	FourHours
	OneDay
	OneWeek
	OneMonth
)

var timeframeNames = map[Timeframe]string{
	OneMinute:      "M1",
	FiveMinutes:    "M5",
	FifteenMinutes: "M15",
	ThirtyMinutes:  "M30",
	OneHour:        "H1",
	FourHours:      "H4",
	OneDay:         "D1",
	OneWeek:        "W1",
	OneMonth:       "MN1",
}

func (tf Timeframe) String() string {
	if s, ok := timeframeNames[tf]; ok {
		return s
	}
	return fmt.Sprintf("Timeframe(%d)", int(tf))
}

// Minutes returns the nominal bucket length. One month is reported as 30
// days; monthly buckets are computed by calendar, not by this value.
func (tf Timeframe) Minutes() int {
	switch tf {
	case OneMinute:
		return 1
	case FiveMinutes:
		return 5
	case FifteenMinutes:
		return 15
	case ThirtyMinutes:
		return 30
	case OneHour:
		return 60
	case FourHours:
		return 240
	case OneDay:
		return 1440
	case OneWeek:
		return 10080
	case OneMonth:
		return 43200
	}
	return 0
}

func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Minutes()) * time.Minute
}

// ParseTimeframe resolves a config string like "M5" or "H1".
func ParseTimeframe(s string) (Timeframe, error) {
	for tf, name := range timeframeNames {
		if name == s {
			return tf, nil
		}
	}
	return 0, fmt.Errorf("unknown timeframe %q", s)
}

// Operation is the position direction / entry kind.
type Operation int

const (
	Buy Operation = iota
	Sell
	BuyLimit
	SellLimit
	BuyStop
	SellStop
	BalanceOperation
	CreditOperation
)

func (op Operation) String() string {
	switch op {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case BuyLimit:
		return "BUY_LIMIT"
	case SellLimit:
		return "SELL_LIMIT"
	case BuyStop:
		return "BUY_STOP"
	case SellStop:
		return "SELL_STOP"
	case BalanceOperation:
		return "BALANCE"
	case CreditOperation:
		return "CREDIT"
	}
	return fmt.Sprintf("Operation(%d)", int(op))
}

// TradeCommand is the transaction kind sent with tradeTransaction.
type TradeCommand int

const (
	OpenTrade TradeCommand = iota
	PendingTrade
	CloseTrade
	ModifyTrade
	DeleteTrade
)

// CloseReason classifies why a position was closed, derived from the
// broker's free-text comment.
type CloseReason int

const (
	Closed CloseReason = iota
	StopLossHit
	TakeProfitHit
	MarginCall
)

func (r CloseReason) String() string {
	switch r {
	case StopLossHit:
		return "STOP_LOSS"
	case TakeProfitHit:
		return "TAKE_PROFIT"
	case MarginCall:
		return "MARGIN_CALL"
	default:
		return "CLOSED"
	}
}

// RequestStatus is the broker-side state of a trade transaction.
type RequestStatus int

const (
	RequestError    RequestStatus = 0
	RequestPending  RequestStatus = 1
	RequestAccepted RequestStatus = 3
	RequestRejected RequestStatus = 4
)
