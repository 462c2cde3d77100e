package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	cache "github.com/patrickmn/go-cache"

	"fxconnect/internal/types"
)

// Response is the envelope of every reply on the command socket.
type Response struct {
	Status          bool            `json:"status"`
	CustomTag       string          `json:"customTag"`
	ReturnData      json.RawMessage `json:"returnData"`
	StreamSessionID string          `json:"streamSessionId"`
	ErrorCode       string          `json:"errorCode"`
	ErrorDescr      string          `json:"errorDescr"`
}

// APIError is a broker-rejected command.
type APIError struct {
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker error %s: %s", e.Code, e.Description)
}

func ParseResponse(raw []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return &r, nil
}

// Err returns the APIError for a failed response, nil otherwise.
func (r *Response) Err() error {
	if r.Status {
		return nil
	}
	return &APIError{Code: r.ErrorCode, Description: r.ErrorDescr}
}

// StreamFrame is one push message on the streaming socket.
type StreamFrame struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`
}

func ParseStreamFrame(raw []byte) (*StreamFrame, error) {
	var f StreamFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("malformed stream frame: %w", err)
	}
	if f.Command == "" {
		return nil, fmt.Errorf("stream frame without command: %s", raw)
	}
	return &f, nil
}

// Adapter converts wire payloads into domain records. Pure except for the
// injected symbol-category memo, whose lifetime the owning connector
// controls.
type Adapter struct {
	categories *cache.Cache
}

func NewAdapter() *Adapter {
	return &Adapter{categories: cache.New(cache.NoExpiration, 0)}
}

var categoryNames = map[string]string{
	"FX":  "Forex",
	"CMD": "Commodities",
	"IND": "Indices",
	"CRT": "Cryptocurrencies",
	"STC": "Stocks",
	"ETF": "ETFs",
}

// categoryName classifies a symbol-category code, memoized per code since
// the same handful of codes repeats across thousands of symbols.
func (a *Adapter) categoryName(code string) string {
	if v, ok := a.categories.Get(code); ok {
		return v.(string)
	}
	name, ok := categoryNames[strings.ToUpper(code)]
	if !ok {
		name = code
	}
	a.categories.Set(code, name, cache.NoExpiration)
	return name
}

func fromMS(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

type symbolDTO struct {
	Symbol         string  `json:"symbol"`
	CategoryName   string  `json:"categoryName"`
	ContractSize   int     `json:"contractSize"`
	Currency       string  `json:"currency"`
	CurrencyProfit string  `json:"currencyProfit"`
	TickSize       float64 `json:"tickSize"`
	Leverage       float64 `json:"leverage"`
	Precision      int     `json:"precision"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Description    string  `json:"description"`
}

func (a *Adapter) symbolInfo(d symbolDTO) types.SymbolInfo {
	return types.SymbolInfo{
		Symbol:         d.Symbol,
		Category:       d.CategoryName,
		CategoryName:   a.categoryName(d.CategoryName),
		ContractSize:   d.ContractSize,
		Currency:       d.Currency,
		CurrencyProfit: d.CurrencyProfit,
		TickSize:       d.TickSize,
		Leverage:       d.Leverage,
		Precision:      d.Precision,
		Bid:            d.Bid,
		Ask:            d.Ask,
		Description:    d.Description,
	}
}

func (a *Adapter) SymbolInfo(raw json.RawMessage) (types.SymbolInfo, error) {
	var d symbolDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.SymbolInfo{}, fmt.Errorf("symbol payload: %w", err)
	}
	return a.symbolInfo(d), nil
}

func (a *Adapter) SymbolInfos(raw json.RawMessage) ([]types.SymbolInfo, error) {
	var ds []symbolDTO
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("symbols payload: %w", err)
	}
	out := make([]types.SymbolInfo, 0, len(ds))
	for _, d := range ds {
		out = append(out, a.symbolInfo(d))
	}
	return out, nil
}

type rateInfoDTO struct {
	Ctm   int64   `json:"ctm"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
	Vol   float64 `json:"vol"`
}

type chartDTO struct {
	Digits    int           `json:"digits"`
	RateInfos []rateInfoDTO `json:"rateInfos"`
}

// Candles decodes a historical chart response. Wire prices are integer
// points shifted by the symbol's digits, with high/low/close relative to
// open.
func (a *Adapter) Candles(raw json.RawMessage) ([]types.Candle, error) {
	var d chartDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("chart payload: %w", err)
	}
	scale := math.Pow10(d.Digits)
	out := make([]types.Candle, 0, len(d.RateInfos))
	for _, r := range d.RateInfos {
		out = append(out, types.Candle{
			Timestamp: fromMS(r.Ctm),
			Open:      r.Open / scale,
			High:      (r.Open + r.High) / scale,
			Low:       (r.Open + r.Low) / scale,
			Close:     (r.Open + r.Close) / scale,
			Volume:    r.Vol,
		})
	}
	return out, nil
}

type tickDTO struct {
	Symbol    string  `json:"symbol"`
	Ask       float64 `json:"ask"`
	AskVolume float64 `json:"askVolume"`
	Bid       float64 `json:"bid"`
	BidVolume float64 `json:"bidVolume"`
	Timestamp int64   `json:"timestamp"`
}

func (a *Adapter) Tick(raw json.RawMessage) (types.Tick, error) {
	var d tickDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.Tick{}, fmt.Errorf("tick payload: %w", err)
	}
	return types.Tick{
		Symbol:    d.Symbol,
		Ask:       d.Ask,
		AskVolume: d.AskVolume,
		Bid:       d.Bid,
		BidVolume: d.BidVolume,
		Timestamp: fromMS(d.Timestamp),
	}, nil
}

// Ticks decodes the getTickPrices command response.
func (a *Adapter) Ticks(raw json.RawMessage) ([]types.Tick, error) {
	var d struct {
		Quotations []tickDTO `json:"quotations"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("tick prices payload: %w", err)
	}
	out := make([]types.Tick, 0, len(d.Quotations))
	for _, q := range d.Quotations {
		out = append(out, types.Tick{
			Symbol:    q.Symbol,
			Ask:       q.Ask,
			AskVolume: q.AskVolume,
			Bid:       q.Bid,
			BidVolume: q.BidVolume,
			Timestamp: fromMS(q.Timestamp),
		})
	}
	return out, nil
}

// StreamCandle decodes a pushed candle frame; prices are absolute here,
// unlike historical chart responses.
func (a *Adapter) StreamCandle(raw json.RawMessage) (types.Candle, string, error) {
	var d struct {
		Symbol string  `json:"symbol"`
		Ctm    int64   `json:"ctm"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Vol    float64 `json:"vol"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.Candle{}, "", fmt.Errorf("candle payload: %w", err)
	}
	return types.Candle{
		Timestamp: fromMS(d.Ctm),
		Open:      d.Open,
		High:      d.High,
		Low:       d.Low,
		Close:     d.Close,
		Volume:    d.Vol,
	}, d.Symbol, nil
}

type tradeDTO struct {
	Order      int     `json:"order"`
	Order2     int     `json:"order2"`
	Position   int     `json:"position"`
	Symbol     string  `json:"symbol"`
	Cmd        int     `json:"cmd"`
	Volume     float64 `json:"volume"`
	OpenPrice  float64 `json:"open_price"`
	OpenTime   int64   `json:"open_time"`
	ClosePrice float64 `json:"close_price"`
	CloseTime  int64   `json:"close_time"`
	Closed     bool    `json:"closed"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Profit     float64 `json:"profit"`
	Comment    string  `json:"comment"`
}

func (a *Adapter) tradeRecord(d tradeDTO) (types.TradeRecord, error) {
	op, err := OperationFromCode(d.Cmd)
	if err != nil {
		return types.TradeRecord{}, err
	}
	rec := types.TradeRecord{
		Order:       d.Order,
		Order2:      d.Order2,
		Position:    d.Position,
		Symbol:      d.Symbol,
		Operation:   op,
		Volume:      d.Volume,
		OpenPrice:   d.OpenPrice,
		OpenTime:    fromMS(d.OpenTime),
		ClosePrice:  d.ClosePrice,
		Closed:      d.Closed,
		StopLoss:    d.StopLoss,
		TakeProfit:  d.TakeProfit,
		Profit:      d.Profit,
		Comment:     d.Comment,
		CloseReason: CloseReasonFromComment(d.Comment),
	}
	if d.CloseTime > 0 {
		rec.CloseTime = fromMS(d.CloseTime)
	}
	return rec, nil
}

func (a *Adapter) TradeRecord(raw json.RawMessage) (types.TradeRecord, error) {
	var d tradeDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.TradeRecord{}, fmt.Errorf("trade payload: %w", err)
	}
	return a.tradeRecord(d)
}

func (a *Adapter) TradeRecords(raw json.RawMessage) ([]types.TradeRecord, error) {
	var ds []tradeDTO
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("trades payload: %w", err)
	}
	out := make([]types.TradeRecord, 0, len(ds))
	for _, d := range ds {
		rec, err := a.tradeRecord(d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Balance decodes the getMarginLevel response (snake_case keys).
func (a *Adapter) Balance(raw json.RawMessage) (types.BalanceRecord, error) {
	var d struct {
		Balance     float64 `json:"balance"`
		Credit      float64 `json:"credit"`
		Equity      float64 `json:"equity"`
		Margin      float64 `json:"margin"`
		MarginFree  float64 `json:"margin_free"`
		MarginLevel float64 `json:"margin_level"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.BalanceRecord{}, fmt.Errorf("margin level payload: %w", err)
	}
	return types.BalanceRecord{
		Balance:     d.Balance,
		Credit:      d.Credit,
		Equity:      d.Equity,
		Margin:      d.Margin,
		MarginFree:  d.MarginFree,
		MarginLevel: d.MarginLevel,
	}, nil
}

// StreamBalance decodes the pushed balance frame (camelCase keys).
func (a *Adapter) StreamBalance(raw json.RawMessage) (types.BalanceRecord, error) {
	var d struct {
		Balance     float64 `json:"balance"`
		Credit      float64 `json:"credit"`
		Equity      float64 `json:"equity"`
		Margin      float64 `json:"margin"`
		MarginFree  float64 `json:"marginFree"`
		MarginLevel float64 `json:"marginLevel"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.BalanceRecord{}, fmt.Errorf("balance payload: %w", err)
	}
	return types.BalanceRecord{
		Balance:     d.Balance,
		Credit:      d.Credit,
		Equity:      d.Equity,
		Margin:      d.Margin,
		MarginFree:  d.MarginFree,
		MarginLevel: d.MarginLevel,
	}, nil
}

type newsDTO struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Time  int64  `json:"time"`
}

func (a *Adapter) newsRecord(d newsDTO) types.NewsRecord {
	return types.NewsRecord{
		Key:      d.Key,
		Title:    d.Title,
		Body:     d.Body,
		BodyText: htmlToText(d.Body),
		Time:     fromMS(d.Time),
	}
}

func (a *Adapter) News(raw json.RawMessage) (types.NewsRecord, error) {
	var d newsDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.NewsRecord{}, fmt.Errorf("news payload: %w", err)
	}
	return a.newsRecord(d), nil
}

func (a *Adapter) NewsRecords(raw json.RawMessage) ([]types.NewsRecord, error) {
	var ds []newsDTO
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("news payload: %w", err)
	}
	out := make([]types.NewsRecord, 0, len(ds))
	for _, d := range ds {
		out = append(out, a.newsRecord(d))
	}
	return out, nil
}

// htmlToText flattens a news body to plain text. Bodies are frequently
// HTML fragments; a body that fails to parse is passed through as-is.
func htmlToText(body string) string {
	if !strings.Contains(body, "<") {
		return strings.TrimSpace(body)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(doc.Text())
}

func (a *Adapter) KeepAlive(raw json.RawMessage) (types.KeepAliveRecord, error) {
	var d struct {
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.KeepAliveRecord{}, fmt.Errorf("keep-alive payload: %w", err)
	}
	return types.KeepAliveRecord{Timestamp: fromMS(d.Timestamp)}, nil
}

func (a *Adapter) Profit(raw json.RawMessage) (types.ProfitRecord, error) {
	var d struct {
		Order    int     `json:"order"`
		Order2   int     `json:"order2"`
		Position int     `json:"position"`
		Profit   float64 `json:"profit"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.ProfitRecord{}, fmt.Errorf("profit payload: %w", err)
	}
	return types.ProfitRecord{Order: d.Order, Order2: d.Order2, Position: d.Position, Profit: d.Profit}, nil
}

var requestStatusFromCode = map[int]types.RequestStatus{
	0: types.RequestError,
	1: types.RequestPending,
	3: types.RequestAccepted,
	4: types.RequestRejected,
}

func (a *Adapter) TradeStatus(raw json.RawMessage) (types.TradeStatusRecord, error) {
	var d struct {
		Order         int     `json:"order"`
		RequestStatus int     `json:"requestStatus"`
		Message       string  `json:"message"`
		Price         float64 `json:"price"`
		CustomComment string  `json:"customComment"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.TradeStatusRecord{}, fmt.Errorf("trade status payload: %w", err)
	}
	status, ok := requestStatusFromCode[d.RequestStatus]
	if !ok {
		return types.TradeStatusRecord{}, &CodeError{Kind: "request status code", Value: d.RequestStatus}
	}
	return types.TradeStatusRecord{
		Order:         d.Order,
		RequestStatus: status,
		Message:       d.Message,
		Price:         d.Price,
		CustomComment: d.CustomComment,
	}, nil
}

// OrderNumber decodes the tradeTransaction response.
func (a *Adapter) OrderNumber(raw json.RawMessage) (int, error) {
	var d struct {
		Order int `json:"order"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return 0, fmt.Errorf("trade transaction payload: %w", err)
	}
	return d.Order, nil
}

type hoursDTO struct {
	Day   int   `json:"day"`
	FromT int64 `json:"fromT"`
	ToT   int64 `json:"toT"`
}

func hoursWindows(ds []hoursDTO) []types.HoursWindow {
	out := make([]types.HoursWindow, 0, len(ds))
	for _, d := range ds {
		// wire days run Monday=1..Sunday=7
		out = append(out, types.HoursWindow{
			Day:  time.Weekday(d.Day % 7),
			From: time.Duration(d.FromT) * time.Millisecond,
			To:   time.Duration(d.ToT) * time.Millisecond,
		})
	}
	return out
}

func (a *Adapter) TradingHours(raw json.RawMessage) ([]types.TradeHourRecord, error) {
	var ds []struct {
		Symbol  string     `json:"symbol"`
		Quotes  []hoursDTO `json:"quotes"`
		Trading []hoursDTO `json:"trading"`
	}
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("trading hours payload: %w", err)
	}
	out := make([]types.TradeHourRecord, 0, len(ds))
	for _, d := range ds {
		out = append(out, types.TradeHourRecord{
			Symbol:  d.Symbol,
			Quotes:  hoursWindows(d.Quotes),
			Trading: hoursWindows(d.Trading),
		})
	}
	return out, nil
}

func (a *Adapter) UserData(raw json.RawMessage) (types.UserDataRecord, error) {
	var d struct {
		Currency           string  `json:"currency"`
		Leverage           float64 `json:"leverage"`
		LeverageMultiplier float64 `json:"leverageMultiplier"`
		Group              string  `json:"group"`
		CompanyUnit        int     `json:"companyUnit"`
		SpreadType         string  `json:"spreadType"`
		TrailingStop       bool    `json:"trailingStop"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.UserDataRecord{}, fmt.Errorf("user data payload: %w", err)
	}
	return types.UserDataRecord{
		Currency:           d.Currency,
		Leverage:           d.Leverage,
		LeverageMultiplier: d.LeverageMultiplier,
		Group:              d.Group,
		CompanyUnit:        d.CompanyUnit,
		SpreadType:         d.SpreadType,
		TrailingStop:       d.TrailingStop,
	}, nil
}

func (a *Adapter) Calendar(raw json.RawMessage) ([]types.CalendarRecord, error) {
	var ds []struct {
		Country  string `json:"country"`
		Title    string `json:"title"`
		Impact   string `json:"impact"`
		Period   string `json:"period"`
		Current  string `json:"current"`
		Forecast string `json:"forecast"`
		Previous string `json:"previous"`
		Time     int64  `json:"time"`
	}
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("calendar payload: %w", err)
	}
	out := make([]types.CalendarRecord, 0, len(ds))
	for _, d := range ds {
		out = append(out, types.CalendarRecord{
			Country:  d.Country,
			Title:    d.Title,
			Impact:   d.Impact,
			Period:   d.Period,
			Current:  d.Current,
			Forecast: d.Forecast,
			Previous: d.Previous,
			Time:     fromMS(d.Time),
		})
	}
	return out, nil
}
