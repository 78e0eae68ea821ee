package ports

import (
	"context"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// HistoryProvider returns the daily trade history of one commodity in one
// market. Points may arrive in any order; the analysis sorts a copy.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, key domain.MarketKey) ([]domain.HistoryPoint, error)
}

// BookProvider returns the current order book snapshot of one commodity.
type BookProvider interface {
	// FetchOrderBook returns both sides in one slice. Implementations that page
	// upstream must return every page or an error, never a partial book.
	FetchOrderBook(ctx context.Context, key domain.MarketKey) ([]domain.OrderBookEntry, error)
}

// MarketData is a provider of both inputs.
type MarketData interface {
	HistoryProvider
	BookProvider
}
