package domain

import (
	"fmt"
	"time"
)

// MarketKey identifies one commodity (type) in one market region.
type MarketKey struct {
	RegionID int32 `json:"region_id"`
	TypeID   int32 `json:"type_id"`
}

func (k MarketKey) String() string {
	return fmt.Sprintf("region=%d type=%d", k.RegionID, k.TypeID)
}

// AnalysisResult is everything one analysis produced. It is owned by the
// caller once returned; nothing inside is shared with the inputs.
type AnalysisResult struct {
	Parameters      AnalysisParameters `json:"parameters"`
	History         []HistoryPoint     `json:"history"` // horizon slice, most recent first
	OrderBook       OrderBook          `json:"order_book"`
	BuyOrders       []OrderBookEntry   `json:"buy_orders"`  // price descending
	SellOrders      []OrderBookEntry   `json:"sell_orders"` // price ascending
	Recommendations []Recommendation   `json:"recommendations"`
	Market          MarketStatistics   `json:"market"`
	Book            BookStatistics     `json:"book"`
}

// Advisory is the opaque output of the text-advisory collaborator. It never
// feeds back into recommendations or statistics.
type Advisory struct {
	Score    int      `json:"score"` // 0-100
	Warnings []string `json:"warnings"`
	Summary  string   `json:"summary,omitempty"`
}

// AdvisoryRequest is what the advisory collaborator receives.
type AdvisoryRequest struct {
	Key         MarketKey        `json:"market"`
	HorizonDays int              `json:"horizon_days"`
	History     []HistoryPoint   `json:"history"`
	Orders      []OrderBookEntry `json:"orders"`
}

// Report wraps one orchestrated analysis with its run metadata.
type Report struct {
	RunID     string         `json:"run_id"`
	Key       MarketKey      `json:"market"`
	FetchedAt time.Time      `json:"fetched_at"`
	Result    AnalysisResult `json:"result"`
	Advisory  *Advisory      `json:"advisory,omitempty"`
}

// Snapshot is a raw, unanalysed capture of fetched inputs.
type Snapshot struct {
	ID         string
	Key        MarketKey
	CapturedAt time.Time
	History    []HistoryPoint
	Orders     []OrderBookEntry
}
