package protocol

import (
	"encoding/json"
	"strconv"
	"time"

	"fxconnect/internal/types"
)

// request is the envelope for every outgoing command. Correlated commands
// carry a customTag; streaming subscriptions carry the stream session id and
// an optional top-level symbol instead.
type request struct {
	Command         string      `json:"command"`
	Arguments       interface{} `json:"arguments,omitempty"`
	CustomTag       string      `json:"customTag,omitempty"`
	StreamSessionID string      `json:"streamSessionId,omitempty"`
	Symbol          string      `json:"symbol,omitempty"`
}

func build(cmd string, args interface{}, tag int) ([]byte, error) {
	r := request{Command: cmd, Arguments: args}
	if tag > 0 {
		r.CustomTag = strconv.Itoa(tag)
	}
	return json.Marshal(r)
}

// ms converts to the broker's millisecond epoch representation.
func ms(t time.Time) int64 {
	return t.UnixMilli()
}

type loginArgs struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	AppName  string `json:"appName,omitempty"`
}

func LoginCommand(userID, password, appName string, tag int) ([]byte, error) {
	return build("login", loginArgs{UserID: userID, Password: password, AppName: appName}, tag)
}

func LogoutCommand(tag int) ([]byte, error) {
	return build("logout", nil, tag)
}

func PingCommand(tag int) ([]byte, error) {
	return build("ping", nil, tag)
}

func AllSymbolsCommand(tag int) ([]byte, error) {
	return build("getAllSymbols", nil, tag)
}

func SymbolCommand(symbol string, tag int) ([]byte, error) {
	return build("getSymbol", map[string]string{"symbol": symbol}, tag)
}

func CalendarCommand(tag int) ([]byte, error) {
	return build("getCalendar", nil, tag)
}

type chartLastArgs struct {
	Period int    `json:"period"`
	Start  int64  `json:"start"`
	Symbol string `json:"symbol"`
}

func ChartLastCommand(tf types.Timeframe, start time.Time, symbol string, tag int) ([]byte, error) {
	period, err := PeriodCode(tf)
	if err != nil {
		return nil, err
	}
	args := struct {
		Info chartLastArgs `json:"info"`
	}{chartLastArgs{Period: period, Start: ms(start), Symbol: symbol}}
	return build("getChartLastRequest", args, tag)
}

type chartRangeArgs struct {
	Period int    `json:"period"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Symbol string `json:"symbol"`
}

func ChartRangeCommand(tf types.Timeframe, start, end time.Time, symbol string, tag int) ([]byte, error) {
	period, err := PeriodCode(tf)
	if err != nil {
		return nil, err
	}
	args := struct {
		Info chartRangeArgs `json:"info"`
	}{chartRangeArgs{Period: period, Start: ms(start), End: ms(end), Symbol: symbol}}
	return build("getChartRangeRequest", args, tag)
}

func MarginLevelCommand(tag int) ([]byte, error) {
	return build("getMarginLevel", nil, tag)
}

func NewsCommand(start, end time.Time, tag int) ([]byte, error) {
	args := map[string]int64{"start": 0, "end": 0}
	if !start.IsZero() {
		args["start"] = ms(start)
	}
	if !end.IsZero() {
		args["end"] = ms(end)
	}
	return build("getNews", args, tag)
}

func CurrentUserDataCommand(tag int) ([]byte, error) {
	return build("getCurrentUserData", nil, tag)
}

func TickPricesCommand(symbols []string, since time.Time, tag int) ([]byte, error) {
	args := struct {
		Level     int      `json:"level"`
		Symbols   []string `json:"symbols"`
		Timestamp int64    `json:"timestamp"`
	}{Level: 0, Symbols: symbols, Timestamp: ms(since)}
	return build("getTickPrices", args, tag)
}

func TradesHistoryCommand(start, end time.Time, tag int) ([]byte, error) {
	args := map[string]int64{"start": ms(start), "end": 0}
	if !end.IsZero() {
		args["end"] = ms(end)
	}
	return build("getTradesHistory", args, tag)
}

func TradesCommand(openedOnly bool, tag int) ([]byte, error) {
	return build("getTrades", map[string]bool{"openedOnly": openedOnly}, tag)
}

func TradingHoursCommand(symbols []string, tag int) ([]byte, error) {
	return build("getTradingHours", map[string][]string{"symbols": symbols}, tag)
}

type tradeTransInfo struct {
	Cmd           int     `json:"cmd"`
	Type          int     `json:"type"`
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	StopLoss      float64 `json:"sl"`
	TakeProfit    float64 `json:"tp"`
	Volume        float64 `json:"volume"`
	Order         int     `json:"order"`
	CustomComment string  `json:"customComment,omitempty"`
	Expiration    int64   `json:"expiration,omitempty"`
}

// TradeTransactionCommand builds the open/modify/close command for a
// position at the given price.
func TradeTransactionCommand(tc types.TradeCommand, trade types.TradeRecord, price float64, tag int) ([]byte, error) {
	opCode, err := OperationCode(trade.Operation)
	if err != nil {
		return nil, err
	}
	tcCode, err := TradeCommandCode(tc)
	if err != nil {
		return nil, err
	}
	args := struct {
		Info tradeTransInfo `json:"tradeTransInfo"`
	}{tradeTransInfo{
		Cmd:           opCode,
		Type:          tcCode,
		Symbol:        trade.Symbol,
		Price:         price,
		StopLoss:      trade.StopLoss,
		TakeProfit:    trade.TakeProfit,
		Volume:        trade.Volume,
		Order:         trade.Order,
		CustomComment: trade.Comment,
	}}
	return build("tradeTransaction", args, tag)
}

func TradeTransactionStatusCommand(order, tag int) ([]byte, error) {
	return build("tradeTransactionStatus", map[string]int{"order": order}, tag)
}

// Streaming subscriptions. Fire-and-forget: no customTag, correlated to
// nothing; the matching push frames arrive on the same socket.

func subscribe(cmd, sessionID, symbol string) ([]byte, error) {
	return json.Marshal(request{Command: cmd, StreamSessionID: sessionID, Symbol: symbol})
}

func unsubscribe(cmd, symbol string) ([]byte, error) {
	return json.Marshal(request{Command: cmd, Symbol: symbol})
}

func SubscribeBalanceCommand(sessionID string) ([]byte, error) {
	return subscribe("getBalance", sessionID, "")
}

func UnsubscribeBalanceCommand() ([]byte, error) {
	return unsubscribe("stopBalance", "")
}

func SubscribeCandlesCommand(sessionID, symbol string) ([]byte, error) {
	return subscribe("getCandles", sessionID, symbol)
}

func UnsubscribeCandlesCommand(symbol string) ([]byte, error) {
	return unsubscribe("stopCandles", symbol)
}

func SubscribeKeepAliveCommand(sessionID string) ([]byte, error) {
	return subscribe("getKeepAlive", sessionID, "")
}

func UnsubscribeKeepAliveCommand() ([]byte, error) {
	return unsubscribe("stopKeepAlive", "")
}

func SubscribeNewsCommand(sessionID string) ([]byte, error) {
	return subscribe("getNews", sessionID, "")
}

func UnsubscribeNewsCommand() ([]byte, error) {
	return unsubscribe("stopNews", "")
}

func SubscribeProfitsCommand(sessionID string) ([]byte, error) {
	return subscribe("getProfits", sessionID, "")
}

func UnsubscribeProfitsCommand() ([]byte, error) {
	return unsubscribe("stopProfits", "")
}

func SubscribeTickPricesCommand(sessionID, symbol string) ([]byte, error) {
	return subscribe("getTickPrices", sessionID, symbol)
}

func UnsubscribeTickPricesCommand(symbol string) ([]byte, error) {
	return unsubscribe("stopTickPrices", symbol)
}

func SubscribeTradesCommand(sessionID string) ([]byte, error) {
	return subscribe("getTrades", sessionID, "")
}

func UnsubscribeTradesCommand() ([]byte, error) {
	return unsubscribe("stopTrades", "")
}

func SubscribeTradeStatusCommand(sessionID string) ([]byte, error) {
	return subscribe("getTradeStatus", sessionID, "")
}

func UnsubscribeTradeStatusCommand() ([]byte, error) {
	return unsubscribe("stopTradeStatus", "")
}

func StreamPingCommand(sessionID string) ([]byte, error) {
	return subscribe("ping", sessionID, "")
}
