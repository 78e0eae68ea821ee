package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/flipscan/internal/analysis"
	"github.com/alejandrodnm/flipscan/internal/domain"
	"github.com/alejandrodnm/flipscan/internal/metrics"
	"github.com/alejandrodnm/flipscan/internal/ports"
)

// Config holds the orchestrator settings.
type Config struct {
	// Interval between scans in Run. Zero runs a single scan.
	Interval time.Duration
	// Workers bounds concurrent fetches and analyses. <= 0 uses the CPU count.
	Workers int
	Filter  FilterConfig
}

// DefaultConfig returns a single-shot configuration.
func DefaultConfig() Config {
	return Config{Filter: DefaultFilterConfig()}
}

// Request is one commodity to scan with its analysis parameters.
type Request struct {
	Key    domain.MarketKey
	Params domain.AnalysisParameters
}

// Scanner fetches market data, analyses it and reports the result.
// The advisor, recorder and notifier are optional.
type Scanner struct {
	cfg      Config
	history  ports.HistoryProvider
	books    ports.BookProvider
	advisor  ports.Advisor
	recorder ports.SnapshotRecorder
	notifier ports.Notifier
	metrics  *metrics.Metrics
	filter   *Filter
	now      func() time.Time
}

// Option wires an optional collaborator.
type Option func(*Scanner)

// WithAdvisor enables advisory requests. An advisor failure fails the scan.
func WithAdvisor(a ports.Advisor) Option { return func(s *Scanner) { s.advisor = a } }

// WithRecorder stores the raw inputs of every scan.
func WithRecorder(r ports.SnapshotRecorder) Option { return func(s *Scanner) { s.recorder = r } }

// WithNotifier sends finished reports to n.
func WithNotifier(n ports.Notifier) Option { return func(s *Scanner) { s.notifier = n } }

// WithMetrics instruments the scanner.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Scanner) { s.metrics = m } }

// New builds a Scanner over the given market data providers.
func New(cfg Config, history ports.HistoryProvider, books ports.BookProvider, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:     cfg,
		history: history,
		books:   books,
		filter:  NewFilter(cfg.Filter),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run scans reqs once, then again every cfg.Interval until ctx is cancelled.
// With a zero interval it returns the error of the single scan.
func (s *Scanner) Run(ctx context.Context, reqs []Request) error {
	slog.Info("scanner starting", "markets", len(reqs), "interval", s.cfg.Interval)

	if _, err := s.ScanMany(ctx, reqs); err != nil {
		if s.cfg.Interval <= 0 {
			return err
		}
		slog.Error("scan failed", "err", err)
	}
	if s.cfg.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if _, err := s.ScanMany(ctx, reqs); err != nil {
				slog.Error("scan failed", "err", err)
			}
		}
	}
}

// Scan analyses a single commodity and notifies the result.
func (s *Scanner) Scan(ctx context.Context, req Request) (domain.Report, error) {
	reports, err := s.ScanMany(ctx, []Request{req})
	if err != nil {
		return domain.Report{}, err
	}
	return reports[0], nil
}

// ScanMany analyses every request and returns the reports in request order.
//
// The scan is all or nothing: invalid parameters, any failed fetch or any
// failed advisory aborts it and nothing is notified. Fetch and advisory
// failures are returned as *domain.UpstreamError.
func (s *Scanner) ScanMany(ctx context.Context, reqs []Request) ([]domain.Report, error) {
	start := s.now()
	runID := uuid.NewString()

	for _, req := range reqs {
		if err := domain.ValidateParameters(req.Params); err != nil {
			s.metrics.ObserveAnalysis(metrics.OutcomeInvalid, 0)
			return nil, fmt.Errorf("scanner.ScanMany: %s: %w", req.Key, err)
		}
	}

	inputs, err := s.fetchAll(ctx, reqs)
	if err != nil {
		s.metrics.ObserveAnalysis(metrics.OutcomeUpstream, 0)
		return nil, fmt.Errorf("scanner.ScanMany: %w", err)
	}
	fetchedAt := s.now().UTC()

	s.record(ctx, runID, fetchedAt, reqs, inputs)

	jobs := make([]analysis.Job, len(reqs))
	for i, req := range reqs {
		jobs[i] = analysis.Job{Key: req.Key, History: inputs[i].history, Orders: inputs[i].orders, Params: req.Params}
	}
	outcomes := analysis.AnalyzeBatch(ctx, jobs, s.cfg.Workers)

	reports := make([]domain.Report, len(reqs))
	for i, o := range outcomes {
		if o.Err != nil {
			outcome := metrics.OutcomeInvalid
			if !isValidation(o.Err) {
				outcome = metrics.OutcomeUpstream
			}
			s.metrics.ObserveAnalysis(outcome, 0)
			return nil, fmt.Errorf("scanner.ScanMany: %s: %w", o.Key, o.Err)
		}
		s.metrics.ObserveAnalysis(metrics.OutcomeOK, len(o.Result.Recommendations))
		reports[i] = domain.Report{RunID: runID, Key: o.Key, FetchedAt: fetchedAt, Result: o.Result}
	}

	if err := s.advise(ctx, reqs, inputs, reports); err != nil {
		return nil, fmt.Errorf("scanner.ScanMany: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, s.filter.Apply(reports)); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("scan complete",
		"run_id", runID,
		"markets", len(reqs),
		"recommendations", countRecommendations(reports),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return reports, nil
}

type fetched struct {
	history []domain.HistoryPoint
	orders  []domain.OrderBookEntry
}

// fetchAll fetches history and order book of every request concurrently.
// The first failure cancels the rest.
func (s *Scanner) fetchAll(ctx context.Context, reqs []Request) ([]fetched, error) {
	out := make([]fetched, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Workers > 0 {
		g.SetLimit(s.cfg.Workers)
	}
	for i, req := range reqs {
		g.Go(func() error {
			started := time.Now()
			h, err := s.history.FetchHistory(gctx, req.Key)
			s.metrics.ObserveFetch("history", started, err)
			if err != nil {
				return &domain.UpstreamError{Source: "history", Key: req.Key, Err: err}
			}
			out[i].history = h
			return nil
		})
		g.Go(func() error {
			started := time.Now()
			o, err := s.books.FetchOrderBook(gctx, req.Key)
			s.metrics.ObserveFetch("orders", started, err)
			if err != nil {
				return &domain.UpstreamError{Source: "orders", Key: req.Key, Err: err}
			}
			out[i].orders = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// record stores raw inputs. A storage failure is logged, not fatal.
func (s *Scanner) record(ctx context.Context, runID string, at time.Time, reqs []Request, inputs []fetched) {
	if s.recorder == nil {
		return
	}
	for i, req := range reqs {
		snap := domain.Snapshot{
			ID:         uuid.NewString(),
			Key:        req.Key,
			CapturedAt: at,
			History:    inputs[i].history,
			Orders:     inputs[i].orders,
		}
		if err := s.recorder.RecordSnapshot(ctx, snap); err != nil {
			slog.Warn("snapshot not recorded", "run_id", runID, "region", req.Key.RegionID, "type_id", req.Key.TypeID, "err", err)
		}
	}
}

// advise attaches an advisory to each report. Advisories run concurrently;
// the first failure aborts the scan.
func (s *Scanner) advise(ctx context.Context, reqs []Request, inputs []fetched, reports []domain.Report) error {
	if s.advisor == nil {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Workers > 0 {
		g.SetLimit(s.cfg.Workers)
	}
	for i, req := range reqs {
		g.Go(func() error {
			started := time.Now()
			adv, err := s.advisor.Advise(gctx, domain.AdvisoryRequest{
				Key:         req.Key,
				HorizonDays: req.Params.HorizonDays,
				History:     inputs[i].history,
				Orders:      inputs[i].orders,
			})
			s.metrics.ObserveFetch("advisor", started, err)
			if err != nil {
				return &domain.UpstreamError{Source: "advisor", Key: req.Key, Err: err}
			}
			reports[i].Advisory = &adv
			return nil
		})
	}
	return g.Wait()
}

func isValidation(err error) bool {
	var v *domain.ValidationError
	return errors.As(err, &v)
}

func countRecommendations(reports []domain.Report) int {
	n := 0
	for _, r := range reports {
		n += len(r.Result.Recommendations)
	}
	return n
}
