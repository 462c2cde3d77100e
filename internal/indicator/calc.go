package indicator

import (
	"time"

	"github.com/montanaflynn/stats"

	"fxconnect/internal/types"
)

// SMAPoint is one simple-moving-average value.
type SMAPoint struct {
	Timestamp time.Time
	Value     float64
}

// SMA builds a moving-average calculation over closes. A rolling sum keeps
// the full-window recompute allocation-free.
func SMA(period int) Calculation[SMAPoint] {
	return func(dst []SMAPoint, candles []types.Candle) []SMAPoint {
		if period <= 0 || len(candles) < period {
			return dst
		}
		sum := 0.0
		for i, c := range candles {
			sum += c.Close
			if i >= period {
				sum -= candles[i-period].Close
			}
			if i >= period-1 {
				dst = append(dst, SMAPoint{
					Timestamp: c.Timestamp,
					Value:     sum / float64(period),
				})
			}
		}
		return dst
	}
}

// BollingerPoint is one Bollinger band sample.
type BollingerPoint struct {
	Timestamp time.Time
	Middle    float64
	Upper     float64
	Lower     float64
}

// Bollinger builds a band calculation over closes with the given window and
// standard-deviation multiplier.
func Bollinger(period int, k float64) Calculation[BollingerPoint] {
	window := make([]float64, 0, period)
	return func(dst []BollingerPoint, candles []types.Candle) []BollingerPoint {
		if period <= 0 || len(candles) < period {
			return dst
		}
		for i := period - 1; i < len(candles); i++ {
			window = window[:0]
			for j := i + 1 - period; j <= i; j++ {
				window = append(window, candles[j].Close)
			}
			mean, err := stats.Mean(window)
			if err != nil {
				continue
			}
			sd, err := stats.StandardDeviation(window)
			if err != nil {
				continue
			}
			dst = append(dst, BollingerPoint{
				Timestamp: candles[i].Timestamp,
				Middle:    mean,
				Upper:     mean + k*sd,
				Lower:     mean - k*sd,
			})
		}
		return dst
	}
}
