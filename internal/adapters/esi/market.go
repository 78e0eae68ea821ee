package esi

// market.go: history and order book endpoints.
//
// The order book is paged. The first page reports X-Pages; the remaining pages
// are fetched concurrently and the shared limiter paces them.

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/flipscan/internal/domain"
	"github.com/alejandrodnm/flipscan/internal/ports"
)

var _ ports.MarketData = (*Client)(nil)

// FetchHistory returns the daily history of key.TypeID in key.RegionID.
func (c *Client) FetchHistory(ctx context.Context, key domain.MarketKey) ([]domain.HistoryPoint, error) {
	url := fmt.Sprintf("%s/markets/%d/history/?datasource=%s&type_id=%d",
		c.baseURL, key.RegionID, c.datasource, key.TypeID)

	var raw []historyResponse
	if _, err := c.get(ctx, url, &raw); err != nil {
		return nil, fmt.Errorf("esi.FetchHistory: %s: %w", key, err)
	}

	points, err := mapHistory(raw)
	if err != nil {
		return nil, fmt.Errorf("esi.FetchHistory: %s: %w", key, err)
	}

	slog.Debug("history fetched", "region", key.RegionID, "type_id", key.TypeID, "days", len(points))
	return points, nil
}

// FetchOrderBook returns every buy and sell order of key.TypeID in
// key.RegionID. Any failing page fails the whole book.
func (c *Client) FetchOrderBook(ctx context.Context, key domain.MarketKey) ([]domain.OrderBookEntry, error) {
	var first []orderResponse
	h, err := c.get(ctx, c.ordersURL(key, 1), &first)
	if err != nil {
		return nil, fmt.Errorf("esi.FetchOrderBook: %s page 1: %w", key, err)
	}

	total := pages(h)
	rest := make([][]orderResponse, total-1)

	g, gctx := errgroup.WithContext(ctx)
	for i := range rest {
		page := i + 2
		g.Go(func() error {
			if _, err := c.get(gctx, c.ordersURL(key, page), &rest[i]); err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("esi.FetchOrderBook: %s: %w", key, err)
	}

	all := first
	for _, p := range rest {
		all = append(all, p...)
	}
	orders := mapOrders(all, key.TypeID)

	slog.Debug("order book fetched",
		"region", key.RegionID,
		"type_id", key.TypeID,
		"pages", total,
		"orders", len(orders),
	)
	return orders, nil
}

func (c *Client) ordersURL(key domain.MarketKey, page int) string {
	return fmt.Sprintf("%s/markets/%d/orders/?datasource=%s&order_type=all&type_id=%d&page=%d",
		c.baseURL, key.RegionID, c.datasource, key.TypeID, page)
}
