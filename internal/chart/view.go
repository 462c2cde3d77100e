package chart

import (
	"fmt"

	"fxconnect/internal/types"
)

// View re-buckets the window into a coarser timeframe on demand, for
// secondary chart rendering. The underlying window is not mutated.
func (a *Aggregator) View(target types.Timeframe) ([]types.Candle, error) {
	if target.Minutes() < a.tf.Minutes() {
		return nil, fmt.Errorf("cannot view %s chart as finer %s", a.tf, target)
	}
	if target == a.tf {
		return a.Snapshot(), nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []types.Candle
	for _, c := range a.window {
		bucket := BucketTime(c.Timestamp, target)
		if len(out) == 0 || !out[len(out)-1].Timestamp.Equal(bucket) {
			merged := c
			merged.Timestamp = bucket
			merged.Ticks = nil
			out = append(out, merged)
			continue
		}
		m := &out[len(out)-1]
		if c.High > m.High {
			m.High = c.High
		}
		if c.Low < m.Low {
			m.Low = c.Low
		}
		m.Close = c.Close
		m.Volume += c.Volume
		m.AskVolume += c.AskVolume
		m.BidVolume += c.BidVolume
	}
	return out, nil
}
