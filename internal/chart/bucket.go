package chart

import (
	"time"

	"fxconnect/internal/types"
)

// BucketTime returns the canonical start of the interval a timestamp falls
// into for the given timeframe. Idempotent: bucketing a bucket start yields
// itself.
func BucketTime(t time.Time, tf types.Timeframe) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	switch tf {
	case types.OneMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case types.OneWeek:
		// back to the Monday on or before t
		offset := (int(t.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	case types.OneDay:
		return midnight
	default:
		mins := int(t.Sub(midnight) / time.Minute)
		mins -= mins % tf.Minutes()
		return midnight.Add(time.Duration(mins) * time.Minute)
	}
}
