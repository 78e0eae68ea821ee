package analysis

// concurrent.go: worker pool for analysing many commodities at once.
//
// Each job owns its inputs, so workers share nothing; results are written back
// by index to keep the caller's order.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// Job is the input of one analysis in a batch.
type Job struct {
	Key     domain.MarketKey
	History []domain.HistoryPoint
	Orders  []domain.OrderBookEntry
	Params  domain.AnalysisParameters
}

// Outcome pairs a job's result with its error.
type Outcome struct {
	Key    domain.MarketKey
	Result domain.AnalysisResult
	Err    error
}

// AnalyzeBatch runs Analyze for every job on a pool of workers and returns the
// outcomes in job order. If workers <= 0 it uses runtime.NumCPU() * 2.
// Jobs not yet started when ctx is cancelled report ctx.Err().
func AnalyzeBatch(ctx context.Context, jobs []Job, workers int) []Outcome {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	workers = min(workers, max(len(jobs), 1))

	out := make([]Outcome, len(jobs))
	workCh := make(chan int, len(jobs))
	for i := range jobs {
		workCh <- i
	}
	close(workCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				job := jobs[i]
				out[i].Key = job.Key
				if err := ctx.Err(); err != nil {
					out[i].Err = err
					continue
				}
				out[i].Result, out[i].Err = Analyze(job.History, job.Orders, job.Params)
				if out[i].Err != nil {
					slog.Debug("analyze failed", "market", job.Key, "err", out[i].Err)
				}
			}
		}()
	}
	wg.Wait()

	slog.Debug("batch analysis complete", "jobs", len(jobs), "workers", workers)
	return out
}
