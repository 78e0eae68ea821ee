package domain

import (
	"sort"
	"time"
)

// HistoryPoint is one day of traded history for a commodity in a region.
type HistoryPoint struct {
	Date         time.Time `json:"date"` // calendar day, UTC
	TradedVolume int64     `json:"traded_volume" validate:"gte=0"`
	AveragePrice float64   `json:"average_price" validate:"finite,gte=0"`
	HighPrice    float64   `json:"high_price" validate:"finite,gte=0"`
	LowPrice     float64   `json:"low_price" validate:"finite,gte=0,ltefield=HighPrice"`
	OrderCount   int64     `json:"order_count" validate:"gte=0"`
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeHistory returns a new slice with every date truncated to its UTC
// calendar day, sorted most recent first and cut to the last horizonDays
// points. The caller's slice is never modified.
func NormalizeHistory(points []HistoryPoint, horizonDays int) []HistoryPoint {
	out := make([]HistoryPoint, len(points))
	for i, p := range points {
		p.Date = Day(p.Date)
		out[i] = p
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if horizonDays > 0 && len(out) > horizonDays {
		out = out[:horizonDays]
	}
	return out
}
