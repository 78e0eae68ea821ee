package analysis

import (
	"fmt"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// Analyze validates the inputs and, if they are well formed, runs the matching
// engine and the statistics over them.
//
// It is a pure function of its arguments: the caller's slices are copied
// before any sort, nothing is cached between calls, and two calls with equal
// inputs return equal results. A validation failure returns
// domain.ValidationErrors and no partial result.
func Analyze(history []domain.HistoryPoint, orders []domain.OrderBookEntry, params domain.AnalysisParameters) (domain.AnalysisResult, error) {
	if err := domain.ValidateInput(history, orders, params); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("analysis.Analyze: %w", err)
	}

	book := domain.OrderBook(orders).Clone()
	horizon := domain.NormalizeHistory(history, params.HorizonDays)
	buys, sells := book.Split()

	market := domain.ComputeMarketStatistics(horizon, params.TargetVolume)

	return domain.AnalysisResult{
		Parameters:      cloneParams(params),
		History:         horizon,
		OrderBook:       book,
		BuyOrders:       buys,
		SellOrders:      sells,
		Recommendations: domain.RecommendSides(buys, sells, params),
		Market:          market,
		Book:            domain.ComputeBookStatistics(buys, sells, market.AverageDailyVolume, params),
	}, nil
}

// cloneParams detaches the optional target volume from the caller's pointer.
func cloneParams(p domain.AnalysisParameters) domain.AnalysisParameters {
	if p.TargetVolume != nil {
		return p.WithTargetVolume(*p.TargetVolume)
	}
	return p
}
