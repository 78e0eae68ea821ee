package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Feasibility tiers split on average daily volume. A value on a boundary
// belongs to the lower tier.
type Feasibility string

const (
	FeasibilityLow    Feasibility = "low"
	FeasibilityMedium Feasibility = "medium"
	FeasibilityHigh   Feasibility = "high"

	lowVolumeCeiling    = 10_000
	mediumVolumeCeiling = 100_000
)

// ClassifyFeasibility maps an average daily volume to a tier.
func ClassifyFeasibility(averageDailyVolume float64) Feasibility {
	switch {
	case averageDailyVolume > mediumVolumeCeiling:
		return FeasibilityHigh
	case averageDailyVolume > lowVolumeCeiling:
		return FeasibilityMedium
	default:
		return FeasibilityLow
	}
}

// MarketStatistics are derived from the traded history.
type MarketStatistics struct {
	Days               int         `json:"days"`
	TotalVolume        int64       `json:"total_volume"`
	AverageDailyVolume float64     `json:"average_daily_volume"`
	Feasibility        Feasibility `json:"feasibility"`
	// EstimatedExecutionDays is advisory and absent unless a target volume was
	// given and there is traded volume to measure against.
	EstimatedExecutionDays *float64 `json:"estimated_execution_days,omitempty"`
	MeanPrice              float64  `json:"mean_price"`
	Volatility             float64  `json:"volatility"` // coefficient of variation, percent
	PriceHigh              float64  `json:"price_high"`
	PriceLow               float64  `json:"price_low"`
}

// ComputeMarketStatistics summarises history. Empty history yields zeroes and
// a low feasibility tier, never NaN.
func ComputeMarketStatistics(history []HistoryPoint, targetVolume *int64) MarketStatistics {
	s := MarketStatistics{Days: len(history)}
	s.AverageDailyVolume = AverageDailyVolume(history)
	s.Feasibility = ClassifyFeasibility(s.AverageDailyVolume)
	s.EstimatedExecutionDays = EstimateExecutionDays(targetVolume, s.AverageDailyVolume)
	s.MeanPrice, s.Volatility = Volatility(history)

	for i, h := range history {
		s.TotalVolume += h.TradedVolume
		if i == 0 || h.HighPrice > s.PriceHigh {
			s.PriceHigh = h.HighPrice
		}
		if i == 0 || h.LowPrice < s.PriceLow {
			s.PriceLow = h.LowPrice
		}
	}
	return s
}

// AverageDailyVolume is the mean traded volume per history point; 0 when empty.
func AverageDailyVolume(history []HistoryPoint) float64 {
	if len(history) == 0 {
		return 0
	}
	var total int64
	for _, h := range history {
		total += h.TradedVolume
	}
	return float64(total) / float64(len(history))
}

// EstimateExecutionDays is targetVolume / averageDailyVolume, or nil when no
// positive target was given or nothing trades.
func EstimateExecutionDays(targetVolume *int64, averageDailyVolume float64) *float64 {
	if targetVolume == nil || *targetVolume <= 0 || averageDailyVolume <= 0 {
		return nil
	}
	days := float64(*targetVolume) / averageDailyVolume
	return &days
}

// Volatility returns the mean average price and its population coefficient of
// variation in percent. Both are 0 for empty history; the coefficient is 0 when
// the mean is not positive.
func Volatility(history []HistoryPoint) (mean, volatility float64) {
	if len(history) == 0 {
		return 0, 0
	}
	prices := make([]float64, len(history))
	for i, h := range history {
		prices[i] = h.AveragePrice
	}
	mean, variance := stat.PopMeanVariance(prices, nil)
	if mean <= 0 || math.IsNaN(variance) || variance <= 0 {
		return mean, 0
	}
	return mean, math.Sqrt(variance) / mean * 100
}

// Wall is the order at which cumulative remaining volume, scanned in execution
// priority, first reaches the liquidity threshold.
type Wall struct {
	OrderID          int64   `json:"order_id"`
	Index            int     `json:"index"` // position in priority order
	Price            float64 `json:"price"`
	CumulativeVolume int64   `json:"cumulative_volume"`
}

// WallThreshold is half the average daily volume. With no traded volume the
// threshold is unbounded and no wall is ever flagged.
func WallThreshold(averageDailyVolume float64) float64 {
	if averageDailyVolume <= 0 {
		return math.Inf(1)
	}
	return averageDailyVolume / 2
}

// DetectWall scans entries, which must already be in priority order, and
// returns the first one at which the running volume reaches threshold, or nil.
func DetectWall(entries []OrderBookEntry, threshold float64) *Wall {
	if math.IsInf(threshold, 1) || math.IsNaN(threshold) {
		return nil
	}
	var cumulative int64
	for i, e := range entries {
		cumulative += e.RemainingVolume
		if float64(cumulative) >= threshold {
			return &Wall{
				OrderID:          e.OrderID,
				Index:            i,
				Price:            e.Price,
				CumulativeVolume: cumulative,
			}
		}
	}
	return nil
}

// BookStatistics are derived from the order-book snapshot.
type BookStatistics struct {
	BuyOrders            int   `json:"buy_orders"`
	SellOrders           int   `json:"sell_orders"`
	BuyVolume            int64 `json:"buy_volume"`
	SellVolume           int64 `json:"sell_volume"`
	BestBuyPrice         Quote `json:"best_buy_price"`  // NoQuote = no bid
	BestSellPrice        Quote `json:"best_sell_price"` // NoQuote = no ask
	Spread               Quote `json:"spread"`
	InstantMarginPercent Quote `json:"instant_margin_percent"`
	BuyWall              *Wall `json:"buy_wall,omitempty"`
	SellWall             *Wall `json:"sell_wall,omitempty"`
}

// ComputeBookStatistics derives best prices, depth and walls. buys and sells
// must be the priority-sorted sides of the book, so the best bid and ask are
// the head of each side.
func ComputeBookStatistics(buys, sells []OrderBookEntry, averageDailyVolume float64, p AnalysisParameters) BookStatistics {
	s := BookStatistics{
		BuyOrders:     len(buys),
		SellOrders:    len(sells),
		BestBuyPrice:  NoQuote,
		BestSellPrice: NoQuote,
	}
	for _, b := range buys {
		s.BuyVolume += b.RemainingVolume
	}
	for _, a := range sells {
		s.SellVolume += a.RemainingVolume
	}
	if len(buys) > 0 {
		s.BestBuyPrice = QuoteOf(buys[0].Price)
	}
	if len(sells) > 0 {
		s.BestSellPrice = QuoteOf(sells[0].Price)
	}
	s.Spread = Spread(s.BestBuyPrice, s.BestSellPrice)
	s.InstantMarginPercent = InstantMarginPercent(s.BestBuyPrice, s.BestSellPrice, p)

	threshold := WallThreshold(averageDailyVolume)
	s.BuyWall = DetectWall(buys, threshold)
	s.SellWall = DetectWall(sells, threshold)
	return s
}
