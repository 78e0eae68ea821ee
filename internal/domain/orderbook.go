package domain

import (
	"encoding/json"
	"sort"
)

// OrderBookEntry is one resting order in a snapshot.
type OrderBookEntry struct {
	OrderID         int64   `json:"order_id"`
	IsBuySide       bool    `json:"is_buy_order"`
	Price           float64 `json:"price" validate:"finite,gt=0"`
	RemainingVolume int64   `json:"volume_remain" validate:"gte=0"`
}

// OrderBook is an unordered snapshot of orders for one commodity in one region.
// Every view derived from it (sides, sorts, filters) is a fresh slice.
type OrderBook []OrderBookEntry

// Clone returns a copy that shares no backing array with ob.
func (ob OrderBook) Clone() OrderBook {
	if ob == nil {
		return OrderBook{}
	}
	out := make(OrderBook, len(ob))
	copy(out, ob)
	return out
}

// Split partitions the book and sorts each side by execution priority:
// buys by price descending, sells by price ascending. Equal prices keep the
// snapshot order.
func (ob OrderBook) Split() (buys, sells []OrderBookEntry) {
	buys = make([]OrderBookEntry, 0, len(ob))
	sells = make([]OrderBookEntry, 0, len(ob))
	for _, e := range ob {
		if e.IsBuySide {
			buys = append(buys, e)
		} else {
			sells = append(sells, e)
		}
	}
	sort.SliceStable(buys, func(i, j int) bool { return buys[i].Price > buys[j].Price })
	sort.SliceStable(sells, func(i, j int) bool { return sells[i].Price < sells[j].Price })
	return buys, sells
}

// Quote is a best price that may be missing: an empty side has no bid or no ask.
type Quote struct {
	Price   float64
	Present bool
}

// NoQuote is the "no bid" / "no ask" sentinel.
var NoQuote = Quote{}

// QuoteOf wraps a known price.
func QuoteOf(price float64) Quote { return Quote{Price: price, Present: true} }

// Value returns the price and whether it is defined.
func (q Quote) Value() (float64, bool) { return q.Price, q.Present }

// MarshalJSON encodes an absent quote as null.
func (q Quote) MarshalJSON() ([]byte, error) {
	if !q.Present {
		return []byte("null"), nil
	}
	return json.Marshal(q.Price)
}

// UnmarshalJSON decodes null as an absent quote.
func (q *Quote) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*q = NoQuote
		return nil
	}
	var p float64
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*q = QuoteOf(p)
	return nil
}

// Spread returns ask - bid. Undefined when either side is missing.
func Spread(bid, ask Quote) Quote {
	if !bid.Present || !ask.Present {
		return NoQuote
	}
	return QuoteOf(ask.Price - bid.Price)
}

// InstantMarginPercent is the net margin of acquiring at the best ask and
// disposing at the best bid, using the same fee convention as the matching
// engine. Undefined when either side is missing.
func InstantMarginPercent(bid, ask Quote, p AnalysisParameters) Quote {
	if !bid.Present || !ask.Present {
		return NoQuote
	}
	cost, _, profit := netPerUnit(ask.Price, bid.Price, p)
	return QuoteOf(profit / cost * 100)
}
