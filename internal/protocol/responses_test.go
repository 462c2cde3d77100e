package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxconnect/internal/types"
)

func TestParseResponseErr(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"status":false,"errorCode":"BE005","errorDescr":"userPasswordCheck: Invalid login or password"}`))
	require.NoError(t, err)

	rerr := resp.Err()
	require.Error(t, rerr)
	var apiErr *APIError
	require.ErrorAs(t, rerr, &apiErr)
	assert.Equal(t, "BE005", apiErr.Code)

	ok, err := ParseResponse([]byte(`{"status":true,"customTag":"4","streamSessionId":"sess","returnData":{}}`))
	require.NoError(t, err)
	assert.NoError(t, ok.Err())
	assert.Equal(t, "4", ok.CustomTag)
	assert.Equal(t, "sess", ok.StreamSessionID)
}

func TestParseStreamFrame(t *testing.T) {
	f, err := ParseStreamFrame([]byte(`{"command":"tickPrices","data":{"symbol":"EURUSD"}}`))
	require.NoError(t, err)
	assert.Equal(t, "tickPrices", f.Command)

	_, err = ParseStreamFrame([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = ParseStreamFrame([]byte(`not json`))
	assert.Error(t, err)
}

func TestCandlesDigitsScaling(t *testing.T) {
	a := NewAdapter()
	// 5 digits: open absolute points, high/low/close relative to open
	raw := []byte(`{"digits":5,"rateInfos":[
		{"ctm":1709287200000,"open":107890,"high":25,"low":-15,"close":10,"vol":42}
	]}`)
	candles, err := a.Candles(raw)
	require.NoError(t, err)
	require.Len(t, candles, 1)

	c := candles[0]
	assert.InDelta(t, 1.07890, c.Open, 1e-9)
	assert.InDelta(t, 1.07915, c.High, 1e-9)
	assert.InDelta(t, 1.07875, c.Low, 1e-9)
	assert.InDelta(t, 1.07900, c.Close, 1e-9)
	assert.Equal(t, 42.0, c.Volume)
	assert.Equal(t, time.UnixMilli(1709287200000).UTC(), c.Timestamp)
}

func TestStreamCandleAbsolutePrices(t *testing.T) {
	a := NewAdapter()
	raw := []byte(`{"symbol":"EURUSD","ctm":1709287200000,"open":1.0789,"high":1.0795,"low":1.0785,"close":1.0790,"vol":7}`)
	c, symbol, err := a.StreamCandle(raw)
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", symbol)
	assert.Equal(t, 1.0789, c.Open)
	assert.Equal(t, 1.0795, c.High)
}

func TestTickDecoding(t *testing.T) {
	a := NewAdapter()
	raw := []byte(`{"symbol":"EURUSD","ask":1.0791,"askVolume":100,"bid":1.0789,"bidVolume":150,"timestamp":1709287200000}`)
	tick, err := a.Tick(raw)
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", tick.Symbol)
	assert.InDelta(t, 0.0002, tick.Spread(), 1e-9)
	assert.Equal(t, time.UnixMilli(1709287200000).UTC(), tick.Timestamp)
}

func TestTradeRecordDecoding(t *testing.T) {
	a := NewAdapter()
	raw := []byte(`{"order":1,"order2":2,"position":3,"symbol":"EURUSD","cmd":1,"volume":0.5,
		"open_price":1.08,"open_time":1709287200000,"close_price":1.07,"close_time":0,
		"closed":false,"sl":1.10,"tp":1.05,"profit":-12.5,"comment":"[S/L]"}`)
	rec, err := a.TradeRecord(raw)
	require.NoError(t, err)

	assert.Equal(t, types.Sell, rec.Operation)
	assert.Equal(t, types.StopLossHit, rec.CloseReason)
	assert.True(t, rec.CloseTime.IsZero(), "close_time 0 stays zero time")
	assert.False(t, rec.Closed)

	_, err = a.TradeRecord([]byte(`{"cmd":42}`))
	assert.Error(t, err, "unmapped operation code is rejected")
}

func TestBalanceKeyCasing(t *testing.T) {
	a := NewAdapter()

	cmdResp := []byte(`{"balance":1000,"credit":0,"equity":990,"margin":50,"margin_free":940,"margin_level":1980}`)
	b, err := a.Balance(cmdResp)
	require.NoError(t, err)
	assert.Equal(t, 940.0, b.MarginFree)
	assert.Equal(t, 1980.0, b.MarginLevel)

	pushed := []byte(`{"balance":1000,"credit":0,"equity":990,"margin":50,"marginFree":940,"marginLevel":1980}`)
	b, err = a.StreamBalance(pushed)
	require.NoError(t, err)
	assert.Equal(t, 940.0, b.MarginFree)
}

func TestNewsBodyFlattening(t *testing.T) {
	a := NewAdapter()
	raw := []byte(`{"key":"k1","title":"CPI","body":"<p>Inflation <b>rose</b> again</p>","time":1709287200000}`)
	rec, err := a.News(raw)
	require.NoError(t, err)
	assert.Equal(t, "<p>Inflation <b>rose</b> again</p>", rec.Body)
	assert.Equal(t, "Inflation rose again", rec.BodyText)

	plain := []byte(`{"key":"k2","title":"t","body":"  no markup here ","time":0}`)
	rec, err = a.News(plain)
	require.NoError(t, err)
	assert.Equal(t, "no markup here", rec.BodyText)
}

func TestTradeStatusCodes(t *testing.T) {
	a := NewAdapter()

	rec, err := a.TradeStatus([]byte(`{"order":5,"requestStatus":3,"message":"","price":1.08}`))
	require.NoError(t, err)
	assert.Equal(t, types.RequestAccepted, rec.RequestStatus)

	_, err = a.TradeStatus([]byte(`{"order":5,"requestStatus":2}`))
	require.Error(t, err)
	var ce *CodeError
	assert.ErrorAs(t, err, &ce)
}

func TestTradingHoursDayMapping(t *testing.T) {
	a := NewAdapter()
	raw := []byte(`[{"symbol":"EURUSD",
		"quotes":[{"day":1,"fromT":0,"toT":86400000},{"day":7,"fromT":79200000,"toT":86400000}],
		"trading":[{"day":5,"fromT":0,"toT":75600000}]}]`)
	recs, err := a.TradingHours(raw)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, time.Monday, recs[0].Quotes[0].Day)
	assert.Equal(t, time.Sunday, recs[0].Quotes[1].Day)
	assert.Equal(t, 22*time.Hour, recs[0].Quotes[1].From)
	assert.Equal(t, time.Friday, recs[0].Trading[0].Day)
	assert.Equal(t, 21*time.Hour, recs[0].Trading[0].To)
}

func TestCategoryNameMemo(t *testing.T) {
	a := NewAdapter()
	assert.Equal(t, "Forex", a.categoryName("FX"))
	assert.Equal(t, "Forex", a.categoryName("FX"))
	assert.Equal(t, "Stocks", a.categoryName("STC"))
	assert.Equal(t, "XYZ", a.categoryName("XYZ"), "unknown codes pass through")
}

func TestTicksQuotations(t *testing.T) {
	a := NewAdapter()
	raw := []byte(`{"quotations":[
		{"symbol":"EURUSD","ask":1.08,"bid":1.0798,"timestamp":1709287200000},
		{"symbol":"GBPUSD","ask":1.26,"bid":1.2598,"timestamp":1709287201000}
	]}`)
	ticks, err := a.Ticks(raw)
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, "GBPUSD", ticks[1].Symbol)
}

func TestOrderNumber(t *testing.T) {
	a := NewAdapter()
	order, err := a.OrderNumber([]byte(`{"order":43}`))
	require.NoError(t, err)
	assert.Equal(t, 43, order)
}
