package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/flipscan/internal/adapters/notify"
	"github.com/alejandrodnm/flipscan/internal/analysis"
	"github.com/alejandrodnm/flipscan/internal/domain"
)

var analyzeFlags struct {
	input string
	json  bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse history and orders read from a JSON file (or - for stdin)",
	Long: `analyze runs the matching engine and statistics on caller-supplied inputs
without fetching anything. The input is {"history": [...], "orders": [...],
"params": {...}}; params is optional and defaults to the configured values.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFlags.input, "input", "i", "-", "input file")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.json, "json", false, "print the raw analysis result as JSON")
}

type analyzeInput struct {
	Key     domain.MarketKey           `json:"market"`
	History []domain.HistoryPoint      `json:"history"`
	Orders  []domain.OrderBookEntry    `json:"orders"`
	Params  *domain.AnalysisParameters `json:"params"`
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	in, err := readInput(analyzeFlags.input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	params := cfg.Params()
	if in.Params != nil {
		params = *in.Params
	}

	res, err := analysis.Analyze(in.History, in.Orders, params)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeFlags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return notify.NewConsoleWriter(out, true).Notify(cmd.Context(), []domain.Report{{
		RunID:     "local",
		Key:       in.Key,
		FetchedAt: time.Now().UTC(),
		Result:    res,
	}})
}

func readInput(path string, stdin io.Reader) (analyzeInput, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return analyzeInput{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var in analyzeInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return analyzeInput{}, fmt.Errorf("decode input: %w", err)
	}
	return in, nil
}
