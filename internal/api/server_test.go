package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/flipscan/internal/api"
	"github.com/alejandrodnm/flipscan/internal/domain"
	"github.com/alejandrodnm/flipscan/internal/metrics"
	"github.com/alejandrodnm/flipscan/internal/scanner"
)

type mockScanner struct {
	got    scanner.Request
	report domain.Report
	err    error
}

func (m *mockScanner) Scan(_ context.Context, req scanner.Request) (domain.Report, error) {
	m.got = req
	m.report.Key = req.Key
	return m.report, m.err
}

func defaults() domain.AnalysisParameters {
	return domain.AnalysisParameters{BuyFeeRate: 0.03, SellFeeRate: 0.03, SalesTaxRate: 0.05, MinimumNetMarginPercent: 5, HorizonDays: 30}
}

func newServer(t *testing.T, s api.Scanner) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api.NewServer(s, defaults(), metrics.New(), 0).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHandleScan_Defaults(t *testing.T) {
	ms := &mockScanner{report: domain.Report{RunID: "r1"}}
	srv := newServer(t, ms)

	resp, err := http.Get(srv.URL + "/api/v1/analysis/10000002/34")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got domain.Report
	decode(t, resp, &got)
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, domain.MarketKey{RegionID: 10000002, TypeID: 34}, ms.got.Key)
	assert.Equal(t, defaults(), ms.got.Params)
}

func TestHandleScan_QueryOverrides(t *testing.T) {
	ms := &mockScanner{}
	srv := newServer(t, ms)

	resp, err := http.Get(srv.URL + "/api/v1/analysis/10000002/34?buy_fee_rate=0.01&horizon_days=7&target_volume=5000")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.01, ms.got.Params.BuyFeeRate)
	assert.Equal(t, 0.03, ms.got.Params.SellFeeRate)
	assert.Equal(t, 7, ms.got.Params.HorizonDays)
	require.NotNil(t, ms.got.Params.TargetVolume)
	assert.Equal(t, int64(5000), *ms.got.Params.TargetVolume)
}

func TestHandleScan_BadInput(t *testing.T) {
	srv := newServer(t, &mockScanner{})

	resp, err := http.Get(srv.URL + "/api/v1/analysis/abc/34?horizon_days=x")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body api.ErrResponse
	decode(t, resp, &body)
	fields := make([]string, len(body.Fields))
	for i, f := range body.Fields {
		fields[i] = f.Field
	}
	assert.ElementsMatch(t, []string{"path.region", "query.horizon_days"}, fields)
}

func TestHandleScan_ValidationErrorFromScanner(t *testing.T) {
	ms := &mockScanner{err: domain.ValidationErrors{{Field: "params.buy_fee_rate", Reason: "must be at most 1"}}}
	srv := newServer(t, ms)

	resp, err := http.Get(srv.URL + "/api/v1/analysis/1/2")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body api.ErrResponse
	decode(t, resp, &body)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "params.buy_fee_rate", body.Fields[0].Field)
}

func TestHandleScan_UpstreamFailure(t *testing.T) {
	ms := &mockScanner{err: &domain.UpstreamError{Source: "orders", Err: errors.New("esi 503")}}
	srv := newServer(t, ms)

	resp, err := http.Get(srv.URL + "/api/v1/analysis/1/2")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var body api.ErrResponse
	decode(t, resp, &body)
	assert.Equal(t, "orders", body.Source)
}

// stalledMarket never answers before the request context is done.
type stalledMarket struct{}

func (stalledMarket) FetchHistory(ctx context.Context, _ domain.MarketKey) ([]domain.HistoryPoint, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledMarket) FetchOrderBook(ctx context.Context, _ domain.MarketKey) ([]domain.OrderBookEntry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHandleScan_FetchTimeout(t *testing.T) {
	s := scanner.New(scanner.DefaultConfig(), stalledMarket{}, stalledMarket{})
	srv := httptest.NewServer(api.NewServer(s, defaults(), metrics.New(), 50*time.Millisecond).Routes())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/v1/analysis/10000002/34")
	require.NoError(t, err)

	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	var body api.ErrResponse
	decode(t, resp, &body)
	assert.Contains(t, []string{"history", "orders"}, body.Source)
}

func TestHandleAnalyze(t *testing.T) {
	srv := newServer(t, &mockScanner{})
	body := `{
		"orders": [
			{"order_id": 1, "is_buy_order": true,  "price": 120, "volume_remain": 10},
			{"order_id": 2, "is_buy_order": false, "price": 100, "volume_remain": 5}
		],
		"params": {"buy_fee_rate": 0, "sell_fee_rate": 0, "sales_tax_rate": 0, "minimum_net_margin_percent": 0, "horizon_days": 30}
	}`

	resp, err := http.Post(srv.URL+"/api/v1/analyze", "application/json", strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var res domain.AnalysisResult
	decode(t, resp, &res)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, 100.0, res.Recommendations[0].PotentialProfit)
	assert.Equal(t, domain.QuoteOf(120), res.Book.BestBuyPrice)
}

func TestHandleAnalyze_Invalid(t *testing.T) {
	srv := newServer(t, &mockScanner{})

	resp, err := http.Post(srv.URL+"/api/v1/analyze", "application/json",
		strings.NewReader(`{"orders":[{"order_id":1,"is_buy_order":true,"price":-5,"volume_remain":1}]}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body api.ErrResponse
	decode(t, resp, &body)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "orders[0].price", body.Fields[0].Field)
}

func TestHandleAnalyze_MalformedJSON(t *testing.T) {
	srv := newServer(t, &mockScanner{})

	resp, err := http.Post(srv.URL+"/api/v1/analyze", "application/json", strings.NewReader(`{"orders":`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t, &mockScanner{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(b))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), `flipscan_http_requests_total{code="200",route="/healthz"} 1`)
}
