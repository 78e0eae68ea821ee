package domain

import "sort"

// MaxRecommendations bounds the ranked list returned by Recommend.
const MaxRecommendations = 20

// Recommendation is one executable buy-low/sell-high pair.
//
// Naming follows the order book, not the trader: the acquisition leg fills a
// resting SELL order (BuyPrice is that sell order's price) and the disposal leg
// fills a resting BUY order (SellPrice is that buy order's price).
type Recommendation struct {
	SellOrderID      int64   `json:"sell_order_id"` // order we acquire from
	BuyOrderID       int64   `json:"buy_order_id"`  // order we dispose into
	BuyPrice         float64 `json:"buy_price"`
	SellPrice        float64 `json:"sell_price"`
	NetMarginPercent float64 `json:"net_margin_percent"`
	ProfitPerUnit    float64 `json:"profit_per_unit"`
	ExecutableVolume int64   `json:"executable_volume"`
	PotentialProfit  float64 `json:"potential_profit"`
}

// netPerUnit applies the fee convention: the buy fee is paid on the
// acquisition price, the sell fee and sales tax on the disposal price.
func netPerUnit(acquire, dispose float64, p AnalysisParameters) (cost, revenue, profit float64) {
	cost = acquire * (1 + p.BuyFeeRate)
	revenue = dispose * (1 - p.SellFeeRate - p.SalesTaxRate)
	return cost, revenue, revenue - cost
}

// Recommend cross-matches every sell order (acquisition) against every buy
// order (disposal) with a positive gross spread, keeps the pairs whose net
// margin reaches p.MinimumNetMarginPercent, and returns them ranked by
// potential profit, best first, truncated to MaxRecommendations.
//
// Scan order is sells ascending by price, buys descending by price; pairs with
// equal potential profit keep that order. The book must already be validated
// (positive prices); an empty side yields an empty, non-nil slice.
func Recommend(book OrderBook, p AnalysisParameters) []Recommendation {
	buys, sells := book.Split()
	return RecommendSides(buys, sells, p)
}

// RecommendSides is Recommend over sides already in priority order, as
// returned by OrderBook.Split. The sides are read, never reordered.
func RecommendSides(buys, sells []OrderBookEntry, p AnalysisParameters) []Recommendation {
	recs := make([]Recommendation, 0)
	if len(buys) == 0 || len(sells) == 0 {
		return recs
	}

	for _, sell := range sells {
		for _, buy := range buys {
			// buys are sorted descending: nothing further can beat this ask.
			if buy.Price <= sell.Price {
				break
			}
			cost, _, profit := netPerUnit(sell.Price, buy.Price, p)
			margin := profit / cost * 100
			if margin < p.MinimumNetMarginPercent {
				continue
			}
			volume := min(buy.RemainingVolume, sell.RemainingVolume)
			recs = append(recs, Recommendation{
				SellOrderID:      sell.OrderID,
				BuyOrderID:       buy.OrderID,
				BuyPrice:         sell.Price,
				SellPrice:        buy.Price,
				NetMarginPercent: margin,
				ProfitPerUnit:    profit,
				ExecutableVolume: volume,
				PotentialProfit:  profit * float64(volume),
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].PotentialProfit > recs[j].PotentialProfit
	})
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}
