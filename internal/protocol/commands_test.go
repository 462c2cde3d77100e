package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxconnect/internal/types"
)

func decode(t *testing.T, payload []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &m))
	return m
}

func TestLoginCommandShape(t *testing.T) {
	payload, err := LoginCommand("1000", "pw", "fxconnect", 7)
	require.NoError(t, err)
	m := decode(t, payload)

	assert.Equal(t, "login", m["command"])
	assert.Equal(t, "7", m["customTag"])
	args := m["arguments"].(map[string]interface{})
	assert.Equal(t, "1000", args["userId"])
	assert.Equal(t, "pw", args["password"])
	assert.Equal(t, "fxconnect", args["appName"])
}

func TestPingCommandOmitsArguments(t *testing.T) {
	payload, err := PingCommand(3)
	require.NoError(t, err)
	m := decode(t, payload)

	assert.Equal(t, "ping", m["command"])
	assert.Equal(t, "3", m["customTag"])
	_, hasArgs := m["arguments"]
	assert.False(t, hasArgs)
}

func TestChartLastCommandShape(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	payload, err := ChartLastCommand(types.FiveMinutes, start, "EURUSD", 11)
	require.NoError(t, err)
	m := decode(t, payload)

	assert.Equal(t, "getChartLastRequest", m["command"])
	info := m["arguments"].(map[string]interface{})["info"].(map[string]interface{})
	assert.Equal(t, float64(5), info["period"])
	assert.Equal(t, float64(start.UnixMilli()), info["start"])
	assert.Equal(t, "EURUSD", info["symbol"])
}

func TestChartLastCommandRejectsUnknownTimeframe(t *testing.T) {
	_, err := ChartLastCommand(types.Timeframe(99), time.Now(), "EURUSD", 1)
	assert.Error(t, err)
}

func TestTradeTransactionCommandShape(t *testing.T) {
	trade := types.TradeRecord{
		Symbol:     "EURUSD",
		Operation:  types.Sell,
		Volume:     0.5,
		StopLoss:   1.10,
		TakeProfit: 1.05,
		Order:      12345,
		Comment:    "partial exit",
	}
	payload, err := TradeTransactionCommand(types.CloseTrade, trade, 1.0789, 9)
	require.NoError(t, err)
	m := decode(t, payload)

	assert.Equal(t, "tradeTransaction", m["command"])
	info := m["arguments"].(map[string]interface{})["tradeTransInfo"].(map[string]interface{})
	assert.Equal(t, float64(1), info["cmd"])  // sell
	assert.Equal(t, float64(2), info["type"]) // close
	assert.Equal(t, "EURUSD", info["symbol"])
	assert.Equal(t, 1.0789, info["price"])
	assert.Equal(t, 0.5, info["volume"])
	assert.Equal(t, float64(12345), info["order"])
	assert.Equal(t, "partial exit", info["customComment"])
}

func TestSubscribeCommandsCarrySessionAndSymbol(t *testing.T) {
	payload, err := SubscribeCandlesCommand("sess-1", "EURUSD")
	require.NoError(t, err)
	m := decode(t, payload)

	assert.Equal(t, "getCandles", m["command"])
	assert.Equal(t, "sess-1", m["streamSessionId"])
	assert.Equal(t, "EURUSD", m["symbol"])
	_, hasTag := m["customTag"]
	assert.False(t, hasTag, "subscriptions are not correlated")

	payload, err = UnsubscribeCandlesCommand("EURUSD")
	require.NoError(t, err)
	m = decode(t, payload)
	assert.Equal(t, "stopCandles", m["command"])
	_, hasSession := m["streamSessionId"]
	assert.False(t, hasSession)
}

func TestStreamPingCommand(t *testing.T) {
	payload, err := StreamPingCommand("sess-9")
	require.NoError(t, err)
	m := decode(t, payload)
	assert.Equal(t, "ping", m["command"])
	assert.Equal(t, "sess-9", m["streamSessionId"])
}
