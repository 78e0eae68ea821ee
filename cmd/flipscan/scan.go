package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/flipscan/internal/adapters/advisor"
	"github.com/alejandrodnm/flipscan/internal/adapters/esi"
	"github.com/alejandrodnm/flipscan/internal/adapters/notify"
	"github.com/alejandrodnm/flipscan/internal/adapters/storage"
	"github.com/alejandrodnm/flipscan/internal/domain"
	"github.com/alejandrodnm/flipscan/internal/metrics"
	"github.com/alejandrodnm/flipscan/internal/ports"
	"github.com/alejandrodnm/flipscan/internal/scanner"
)

var scanFlags struct {
	region   int32
	types    []int32
	offline  bool
	record   bool
	advise   bool
	table    bool
	json     bool
	interval int
	target   int64
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Fetch market data and analyse one or more commodities",
	Example: `  flipscan scan --type 34 --type 35 --table
  flipscan scan --offline --type 34 --json
  flipscan scan --record --interval 300`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.Int32Var(&scanFlags.region, "region", 0, "region id (default from config)")
	f.Int32SliceVar(&scanFlags.types, "type", nil, "type id to scan, repeatable (default from config)")
	f.BoolVar(&scanFlags.offline, "offline", false, "replay the latest recorded snapshot instead of fetching")
	f.BoolVar(&scanFlags.record, "record", false, "record fetched inputs to the snapshot store")
	f.BoolVar(&scanFlags.advise, "advise", false, "request an advisory assessment per commodity")
	f.BoolVar(&scanFlags.table, "table", false, "print the full table (default: compact one line per commodity)")
	f.BoolVar(&scanFlags.json, "json", false, "print reports as JSON lines")
	f.IntVar(&scanFlags.interval, "interval", -1, "seconds between scans, 0 for a single scan (default from config)")
	f.Int64Var(&scanFlags.target, "target-volume", 0, "target volume for the execution estimate")
	scanCmd.MarkFlagsMutuallyExclusive("offline", "record")
	scanCmd.MarkFlagsMutuallyExclusive("table", "json")
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	region := cfg.Scanner.RegionID
	if scanFlags.region != 0 {
		region = scanFlags.region
	}
	types := cfg.Scanner.TypeIDs
	if len(scanFlags.types) > 0 {
		types = scanFlags.types
	}
	if len(types) == 0 {
		return errors.New("no type ids: pass --type or set scanner.type_ids")
	}

	params := cfg.Params()
	if scanFlags.target > 0 {
		params = params.WithTargetVolume(scanFlags.target)
	}
	reqs := make([]scanner.Request, len(types))
	for i, t := range types {
		reqs[i] = scanner.Request{Key: domain.MarketKey{RegionID: region, TypeID: t}, Params: params}
	}

	scanCfg := scannerConfig()
	if scanFlags.interval >= 0 {
		scanCfg.Interval = time.Duration(scanFlags.interval) * time.Second
	}

	var notifier ports.Notifier = notify.NewConsole(scanFlags.table)
	if scanFlags.json {
		notifier = notify.NewJSONLines(cmd.OutOrStdout())
	}
	opts := []scanner.Option{scanner.WithNotifier(notifier), scanner.WithMetrics(metrics.New())}

	var market ports.MarketData
	if scanFlags.offline || scanFlags.record || cfg.Storage.Record {
		store, err := storage.NewSnapshotStore(cfg.Storage.DSN, storage.WithRetention(cfg.Retention()))
		if err != nil {
			return err
		}
		defer store.Close()

		if scanFlags.offline {
			market = store
		} else {
			opts = append(opts, scanner.WithRecorder(store))
		}
	}
	if market == nil {
		market = newESIClient()
	}

	if scanFlags.advise || cfg.Advisor.Enabled {
		a, err := newAdvisor()
		if err != nil {
			return err
		}
		opts = append(opts, scanner.WithAdvisor(a))
	}

	slog.Info("flipscan scan",
		"region", region,
		"types", len(types),
		"offline", scanFlags.offline,
		"interval", scanCfg.Interval,
		"params", params.String(),
	)
	return scanner.New(scanCfg, market, market, opts...).Run(ctx, reqs)
}

func newESIClient() *esi.Client {
	return esi.NewClient(esi.Options{
		BaseURL:    cfg.ESI.BaseURL,
		Datasource: cfg.ESI.Datasource,
		UserAgent:  cfg.ESI.UserAgent,
		RatePerSec: cfg.ESI.RatePerSec,
		Timeout:    cfg.ESI.Timeout,
	})
}

func newAdvisor() (*advisor.Client, error) {
	a, err := advisor.NewClient(advisor.Options{
		APIKey:  cfg.Advisor.APIKey,
		BaseURL: cfg.Advisor.BaseURL,
		Model:   cfg.Advisor.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("advisor enabled but not configured (set FLIPSCAN_ADVISOR_API_KEY): %w", err)
	}
	return a, nil
}

func scannerConfig() scanner.Config {
	c := scanner.DefaultConfig()
	c.Interval = cfg.ScanInterval()
	c.Workers = cfg.Scanner.Workers
	c.Filter = scanner.FilterConfig{
		OnlyWithRecommendations: cfg.Scanner.OnlyWithRecommendations,
		MinPotentialProfit:      cfg.Scanner.MinPotentialProfit,
		MaxVolatility:           cfg.Scanner.MaxVolatility,
		MinFeasibility:          domain.Feasibility(cfg.Scanner.MinFeasibility),
	}
	return c
}
