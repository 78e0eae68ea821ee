package esi

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

const dateLayout = "2006-01-02"

// mapHistory converts ESI history rows into domain points. Dates are parsed
// as UTC calendar days; a row with an unparseable date fails the whole batch.
func mapHistory(raw []historyResponse) ([]domain.HistoryPoint, error) {
	out := make([]domain.HistoryPoint, 0, len(raw))
	for i, r := range raw {
		d, err := time.ParseInLocation(dateLayout, r.Date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("history[%d]: date %q: %w", i, r.Date, err)
		}
		out = append(out, domain.HistoryPoint{
			Date:         d,
			TradedVolume: r.Volume,
			AveragePrice: r.Average,
			HighPrice:    r.Highest,
			LowPrice:     r.Lowest,
			OrderCount:   r.OrderCount,
		})
	}
	return out, nil
}

// mapOrders converts ESI orders into book entries, dropping orders for other
// types and duplicates that shifted between pages while paging.
func mapOrders(raw []orderResponse, typeID int32) []domain.OrderBookEntry {
	seen := make(map[int64]struct{}, len(raw))
	out := make([]domain.OrderBookEntry, 0, len(raw))
	for _, r := range raw {
		if r.TypeID != 0 && r.TypeID != typeID {
			continue
		}
		if _, dup := seen[r.OrderID]; dup {
			continue
		}
		seen[r.OrderID] = struct{}{}
		out = append(out, domain.OrderBookEntry{
			OrderID:         r.OrderID,
			IsBuySide:       r.IsBuyOrder,
			Price:           r.Price,
			RemainingVolume: r.VolumeRemain,
		})
	}
	return out
}
