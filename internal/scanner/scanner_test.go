package scanner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/flipscan/internal/domain"
	"github.com/alejandrodnm/flipscan/internal/metrics"
	"github.com/alejandrodnm/flipscan/internal/scanner"
)

// --- mocks ---

type mockMarketData struct {
	history    map[domain.MarketKey][]domain.HistoryPoint
	orders     map[domain.MarketKey][]domain.OrderBookEntry
	historyErr error
	ordersErr  error
}

func (m *mockMarketData) FetchHistory(_ context.Context, key domain.MarketKey) ([]domain.HistoryPoint, error) {
	return m.history[key], m.historyErr
}

func (m *mockMarketData) FetchOrderBook(_ context.Context, key domain.MarketKey) ([]domain.OrderBookEntry, error) {
	return m.orders[key], m.ordersErr
}

type mockAdvisor struct {
	mu    sync.Mutex
	calls []domain.AdvisoryRequest
	err   error
}

func (m *mockAdvisor) Advise(_ context.Context, req domain.AdvisoryRequest) (domain.Advisory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return domain.Advisory{}, m.err
	}
	return domain.Advisory{Score: 80, Warnings: []string{"ok"}}, nil
}

type mockNotifier struct {
	notified [][]domain.Report
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, reports []domain.Report) error {
	m.notified = append(m.notified, reports)
	return m.err
}

type mockRecorder struct {
	mu    sync.Mutex
	saved []domain.Snapshot
	err   error
}

func (m *mockRecorder) RecordSnapshot(_ context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, snap)
	return m.err
}

// --- helpers ---

var (
	tritanium = domain.MarketKey{RegionID: 10000002, TypeID: 34}
	pyerite   = domain.MarketKey{RegionID: 10000002, TypeID: 35}
)

func params() domain.AnalysisParameters {
	return domain.AnalysisParameters{HorizonDays: 30, MinimumNetMarginPercent: 1}
}

func makeData() *mockMarketData {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &mockMarketData{
		history: map[domain.MarketKey][]domain.HistoryPoint{
			tritanium: {{Date: day, TradedVolume: 1000, AveragePrice: 5, HighPrice: 5.5, LowPrice: 4.5}},
			pyerite:   {{Date: day, TradedVolume: 50, AveragePrice: 9, HighPrice: 9, LowPrice: 9}},
		},
		orders: map[domain.MarketKey][]domain.OrderBookEntry{
			// acquire at 5.0, dispose at 5.5: 10% margin
			tritanium: {
				{OrderID: 1, IsBuySide: true, Price: 5.5, RemainingVolume: 100},
				{OrderID: 2, IsBuySide: false, Price: 5.0, RemainingVolume: 40},
			},
			// sell side only
			pyerite: {{OrderID: 3, IsBuySide: false, Price: 10, RemainingVolume: 5}},
		},
	}
}

// --- tests ---

func TestScanner_ScanMany(t *testing.T) {
	data := makeData()
	notifier := &mockNotifier{}
	recorder := &mockRecorder{}
	s := scanner.New(scanner.DefaultConfig(), data, data,
		scanner.WithNotifier(notifier),
		scanner.WithRecorder(recorder),
		scanner.WithMetrics(metrics.New()),
	)

	reports, err := s.ScanMany(context.Background(), []scanner.Request{
		{Key: tritanium, Params: params()},
		{Key: pyerite, Params: params()},
	})

	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, tritanium, reports[0].Key)
	assert.Equal(t, pyerite, reports[1].Key)
	assert.Equal(t, reports[0].RunID, reports[1].RunID)
	assert.NotEmpty(t, reports[0].RunID)

	require.Len(t, reports[0].Result.Recommendations, 1)
	rec := reports[0].Result.Recommendations[0]
	assert.Equal(t, int64(2), rec.SellOrderID)
	assert.Equal(t, int64(40), rec.ExecutableVolume)
	assert.InDelta(t, 20.0, rec.PotentialProfit, 1e-9)

	assert.Empty(t, reports[1].Result.Recommendations)
	assert.Equal(t, domain.NoQuote, reports[1].Result.Book.BestBuyPrice)
	assert.Nil(t, reports[0].Advisory)

	require.Len(t, notifier.notified, 1)
	assert.Len(t, notifier.notified[0], 2)
	assert.Len(t, recorder.saved, 2)
}

func TestScanner_Scan_HistoryFailureIsUpstream(t *testing.T) {
	data := makeData()
	data.historyErr = errors.New("esi down")
	notifier := &mockNotifier{}
	s := scanner.New(scanner.DefaultConfig(), data, data, scanner.WithNotifier(notifier))

	_, err := s.Scan(context.Background(), scanner.Request{Key: tritanium, Params: params()})

	var up *domain.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, "history", up.Source)
	assert.Equal(t, tritanium, up.Key)
	assert.Empty(t, notifier.notified, "nothing is reported on a hard stop")
}

func TestScanner_Scan_OrdersFailureIsUpstream(t *testing.T) {
	data := makeData()
	data.ordersErr = errors.New("page 2 failed")
	s := scanner.New(scanner.DefaultConfig(), data, data)

	_, err := s.Scan(context.Background(), scanner.Request{Key: tritanium, Params: params()})

	var up *domain.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, "orders", up.Source)
}

func TestScanner_Scan_InvalidParamsSkipsFetch(t *testing.T) {
	data := makeData()
	data.historyErr = errors.New("must not be called")
	p := params()
	p.HorizonDays = 0

	_, err := scanner.New(scanner.DefaultConfig(), data, data).Scan(context.Background(), scanner.Request{Key: tritanium, Params: p})

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "params.horizon_days", verr.Field)
}

func TestScanner_Scan_InvalidUpstreamData(t *testing.T) {
	data := makeData()
	data.orders[tritanium] = []domain.OrderBookEntry{{OrderID: 9, Price: -1, RemainingVolume: 1}}

	_, err := scanner.New(scanner.DefaultConfig(), data, data).Scan(context.Background(), scanner.Request{Key: tritanium, Params: params()})

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "orders[0].price", verr.Field)
}

func TestScanner_Scan_WithAdvisor(t *testing.T) {
	data := makeData()
	adv := &mockAdvisor{}
	s := scanner.New(scanner.DefaultConfig(), data, data, scanner.WithAdvisor(adv))

	report, err := s.Scan(context.Background(), scanner.Request{Key: tritanium, Params: params()})

	require.NoError(t, err)
	require.NotNil(t, report.Advisory)
	assert.Equal(t, 80, report.Advisory.Score)
	require.Len(t, adv.calls, 1)
	assert.Equal(t, 30, adv.calls[0].HorizonDays)
	assert.Equal(t, data.orders[tritanium], adv.calls[0].Orders)
}

func TestScanner_Scan_AdvisorFailureIsHardStop(t *testing.T) {
	data := makeData()
	notifier := &mockNotifier{}
	s := scanner.New(scanner.DefaultConfig(), data, data,
		scanner.WithAdvisor(&mockAdvisor{err: errors.New("model unavailable")}),
		scanner.WithNotifier(notifier),
	)

	_, err := s.Scan(context.Background(), scanner.Request{Key: tritanium, Params: params()})

	var up *domain.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, "advisor", up.Source)
	assert.Empty(t, notifier.notified)
}

func TestScanner_Scan_RecorderAndNotifierFailuresAreNotFatal(t *testing.T) {
	data := makeData()
	s := scanner.New(scanner.DefaultConfig(), data, data,
		scanner.WithRecorder(&mockRecorder{err: errors.New("disk full")}),
		scanner.WithNotifier(&mockNotifier{err: errors.New("closed pipe")}),
	)

	report, err := s.Scan(context.Background(), scanner.Request{Key: tritanium, Params: params()})

	require.NoError(t, err)
	assert.Len(t, report.Result.Recommendations, 1)
}

func TestScanner_NotifierReceivesFilteredReports(t *testing.T) {
	data := makeData()
	notifier := &mockNotifier{}
	cfg := scanner.DefaultConfig()
	cfg.Filter.OnlyWithRecommendations = true
	s := scanner.New(cfg, data, data, scanner.WithNotifier(notifier))

	reports, err := s.ScanMany(context.Background(), []scanner.Request{
		{Key: tritanium, Params: params()},
		{Key: pyerite, Params: params()},
	})

	require.NoError(t, err)
	assert.Len(t, reports, 2)
	require.Len(t, notifier.notified, 1)
	require.Len(t, notifier.notified[0], 1)
	assert.Equal(t, tritanium, notifier.notified[0][0].Key)
}

func TestScanner_Run_SingleShot(t *testing.T) {
	data := makeData()
	notifier := &mockNotifier{}
	s := scanner.New(scanner.DefaultConfig(), data, data, scanner.WithNotifier(notifier))

	err := s.Run(context.Background(), []scanner.Request{{Key: tritanium, Params: params()}})

	require.NoError(t, err)
	assert.Len(t, notifier.notified, 1)
}

func TestScanner_Run_SingleShotReturnsError(t *testing.T) {
	data := makeData()
	data.ordersErr = errors.New("down")

	err := scanner.New(scanner.DefaultConfig(), data, data).Run(context.Background(), []scanner.Request{{Key: tritanium, Params: params()}})

	assert.Error(t, err)
}

func TestScanner_Run_StopsOnCancel(t *testing.T) {
	data := makeData()
	cfg := scanner.DefaultConfig()
	cfg.Interval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- scanner.New(cfg, data, data).Run(ctx, []scanner.Request{{Key: tritanium, Params: params()}})
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
