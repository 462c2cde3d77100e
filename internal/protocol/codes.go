package protocol

import (
	"fmt"
	"strings"

	"fxconnect/internal/types"
)

// CodeError reports an enumerated wire value with no table entry. Values
// outside the tables are rejected, never silently defaulted.
type CodeError struct {
	Kind  string
	Value any
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("no %s mapping for %v", e.Kind, e.Value)
}

var periodCodes = map[types.Timeframe]int{
	types.OneMinute:      1,
	types.FiveMinutes:    5,
	types.FifteenMinutes: 15,
	types.ThirtyMinutes:  30,
	types.OneHour:        60,
	types.FourHours:      240,
	types.OneDay:         1440,
	types.OneWeek:        10080,
	types.OneMonth:       43200,
}

var periodFromCode = func() map[int]types.Timeframe {
	m := make(map[int]types.Timeframe, len(periodCodes))
	for tf, code := range periodCodes {
		m[code] = tf
	}
	return m
}()

// PeriodCode maps a timeframe to its wire period code.
func PeriodCode(tf types.Timeframe) (int, error) {
	code, ok := periodCodes[tf]
	if !ok {
		return 0, &CodeError{Kind: "period", Value: tf}
	}
	return code, nil
}

// PeriodFromCode is the inverse of PeriodCode.
func PeriodFromCode(code int) (types.Timeframe, error) {
	tf, ok := periodFromCode[code]
	if !ok {
		return 0, &CodeError{Kind: "period code", Value: code}
	}
	return tf, nil
}

var operationCodes = map[types.Operation]int{
	types.Buy:              0,
	types.Sell:             1,
	types.BuyLimit:         2,
	types.SellLimit:        3,
	types.BuyStop:          4,
	types.SellStop:         5,
	types.BalanceOperation: 6,
	types.CreditOperation:  7,
}

var operationFromCode = func() map[int]types.Operation {
	m := make(map[int]types.Operation, len(operationCodes))
	for op, code := range operationCodes {
		m[code] = op
	}
	return m
}()

func OperationCode(op types.Operation) (int, error) {
	code, ok := operationCodes[op]
	if !ok {
		return 0, &CodeError{Kind: "operation", Value: op}
	}
	return code, nil
}

func OperationFromCode(code int) (types.Operation, error) {
	op, ok := operationFromCode[code]
	if !ok {
		return 0, &CodeError{Kind: "operation code", Value: code}
	}
	return op, nil
}

var tradeCommandCodes = map[types.TradeCommand]int{
	types.OpenTrade:    0,
	types.PendingTrade: 1,
	types.CloseTrade:   2,
	types.ModifyTrade:  3,
	types.DeleteTrade:  4,
}

func TradeCommandCode(tc types.TradeCommand) (int, error) {
	code, ok := tradeCommandCodes[tc]
	if !ok {
		return 0, &CodeError{Kind: "trade command", Value: tc}
	}
	return code, nil
}

// CloseReasonFromComment classifies why a position closed by inspecting the
// broker's free-text comment field.
func CloseReasonFromComment(comment string) types.CloseReason {
	switch {
	case comment == "[S/L]":
		return types.StopLossHit
	case comment == "[T/P]":
		return types.TakeProfitHit
	case strings.Contains(comment, "S/O"):
		return types.MarginCall
	default:
		return types.Closed
	}
}
