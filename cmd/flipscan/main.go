package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/flipscan/config"
)

var (
	configPath string
	verbose    bool
	logFormat  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "flipscan",
	Short: "Find buy-low/sell-high pairs in commodity order books",
	Long: `flipscan cross-matches the buy and sell orders of a commodity, ranks the pairs
that clear fees, tax and a minimum margin, and reports market statistics
(volume, feasibility, volatility, best prices and liquidity walls).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// analyze takes its parameters from the input and only falls back to
		// the config, so a missing default config file is not fatal there.
		optional := cmd == analyzeCmd && !cmd.Flag("config").Changed

		var err error
		cfg, err = loadConfig(configPath, optional)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		if logFormat != "" {
			cfg.Log.Format = logFormat
		}
		setupLogger(cfg.Log, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set log level to debug")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")

	rootCmd.AddCommand(scanCmd, analyzeCmd, serveCmd)
}

// loadConfig reads path. When optional and the file does not exist it
// returns the built-in defaults with environment overrides applied.
func loadConfig(path string, optional bool) (*config.Config, error) {
	c, err := config.Load(path)
	if err != nil && optional && errors.Is(err, fs.ErrNotExist) {
		return config.LoadDefaults()
	}
	return c, err
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("flipscan exited with error", "err", err)
		os.Exit(1)
	}
}
