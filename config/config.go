package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// envPrefix namespaces every environment override, e.g. FLIPSCAN_LOG_LEVEL.
const envPrefix = "FLIPSCAN"

// Config is the complete flipscan configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"analysis"`
	Scanner  ScannerConfig  `yaml:"scanner" envconfig:"scanner"`
	ESI      ESIConfig      `yaml:"esi" envconfig:"esi"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"storage"`
	Advisor  AdvisorConfig  `yaml:"advisor" envconfig:"advisor"`
	Server   ServerConfig   `yaml:"server" envconfig:"server"`
	Log      LogConfig      `yaml:"log" envconfig:"log"`
}

// AnalysisConfig holds the default analysis parameters.
type AnalysisConfig struct {
	BuyFeeRate              float64 `yaml:"buy_fee_rate" envconfig:"buy_fee_rate"`
	SellFeeRate             float64 `yaml:"sell_fee_rate" envconfig:"sell_fee_rate"`
	SalesTaxRate            float64 `yaml:"sales_tax_rate" envconfig:"sales_tax_rate"`
	MinimumNetMarginPercent float64 `yaml:"minimum_net_margin_percent" envconfig:"minimum_net_margin_percent"`
	HorizonDays             int     `yaml:"horizon_days" envconfig:"horizon_days"`
	TargetVolume            int64   `yaml:"target_volume" envconfig:"target_volume"` // 0 = no target
}

// ScannerConfig controls which markets are scanned and what gets reported.
type ScannerConfig struct {
	RegionID        int32   `yaml:"region_id" envconfig:"region_id"`
	TypeIDs         []int32 `yaml:"type_ids" envconfig:"type_ids"`
	IntervalSeconds int     `yaml:"interval_seconds" envconfig:"interval_seconds"` // 0 = single scan
	Workers         int     `yaml:"workers" envconfig:"workers"`

	OnlyWithRecommendations bool    `yaml:"only_with_recommendations" envconfig:"only_with_recommendations"`
	MinPotentialProfit      float64 `yaml:"min_potential_profit" envconfig:"min_potential_profit"`
	MaxVolatility           float64 `yaml:"max_volatility" envconfig:"max_volatility"`
	MinFeasibility          string  `yaml:"min_feasibility" envconfig:"min_feasibility"` // low | medium | high
}

// ESIConfig configures the market-data client.
type ESIConfig struct {
	BaseURL    string        `yaml:"base_url" envconfig:"base_url"`
	Datasource string        `yaml:"datasource" envconfig:"datasource"`
	UserAgent  string        `yaml:"user_agent" envconfig:"user_agent"`
	RatePerSec float64       `yaml:"rate_per_sec" envconfig:"rate_per_sec"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"timeout"`
}

// StorageConfig controls snapshot recording.
type StorageConfig struct {
	DSN           string `yaml:"dsn" envconfig:"dsn"` // path to the SQLite file, or ":memory:"
	Record        bool   `yaml:"record" envconfig:"record"`
	RetentionDays int    `yaml:"retention_days" envconfig:"retention_days"`
}

// AdvisorConfig configures the optional advisory model.
type AdvisorConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"enabled"`
	BaseURL string `yaml:"base_url" envconfig:"base_url"`
	Model   string `yaml:"model" envconfig:"model"`
	APIKey  string `yaml:"-" envconfig:"api_key"` // env only
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `yaml:"addr" envconfig:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"request_timeout"`
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"level"`   // debug | info | warn | error
	Format string `yaml:"format" envconfig:"format"` // text | json
}

// Load reads the YAML file at path, then the .env file if present, then
// FLIPSCAN_* environment overrides, and finally fills in defaults.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}
	if err := finish(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// LoadDefaults builds a config without a YAML file: .env and FLIPSCAN_*
// overrides over the built-in defaults.
func LoadDefaults() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := finish(&cfg); err != nil {
		return nil, fmt.Errorf("config.LoadDefaults: %w", err)
	}
	return &cfg, nil
}

func finish(cfg *Config) error {
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	setDefaults(cfg)

	if err := domain.ValidateParameters(cfg.Params()); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := validateScanner(cfg.Scanner); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	return nil
}

// validateScanner rejects filter settings the report filter cannot apply.
func validateScanner(s ScannerConfig) error {
	switch domain.Feasibility(s.MinFeasibility) {
	case "", domain.FeasibilityLow, domain.FeasibilityMedium, domain.FeasibilityHigh:
	default:
		return &domain.ValidationError{
			Field:  "scanner.min_feasibility",
			Reason: fmt.Sprintf("must be one of low, medium, high (got %q)", s.MinFeasibility),
		}
	}
	if s.MaxVolatility < 0 {
		return &domain.ValidationError{Field: "scanner.max_volatility", Reason: "must be at least 0"}
	}
	return nil
}

// Params returns the default analysis parameters.
func (c *Config) Params() domain.AnalysisParameters {
	p := domain.AnalysisParameters{
		BuyFeeRate:              c.Analysis.BuyFeeRate,
		SellFeeRate:             c.Analysis.SellFeeRate,
		SalesTaxRate:            c.Analysis.SalesTaxRate,
		MinimumNetMarginPercent: c.Analysis.MinimumNetMarginPercent,
		HorizonDays:             c.Analysis.HorizonDays,
	}
	if c.Analysis.TargetVolume > 0 {
		p = p.WithTargetVolume(c.Analysis.TargetVolume)
	}
	return p
}

// ScanInterval returns the scan interval as a time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// Retention returns the snapshot retention window.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// setDefaults fills values that have no meaningful zero. Fee rates and the
// minimum margin are legitimately zero and are left alone.
func setDefaults(cfg *Config) {
	if cfg.Analysis.HorizonDays <= 0 {
		cfg.Analysis.HorizonDays = 30
	}
	if cfg.Scanner.RegionID == 0 {
		cfg.Scanner.RegionID = 10000002 // The Forge
	}
	if cfg.ESI.BaseURL == "" {
		cfg.ESI.BaseURL = "https://esi.evetech.net/latest"
	}
	if cfg.ESI.Datasource == "" {
		cfg.ESI.Datasource = "tranquility"
	}
	if cfg.ESI.UserAgent == "" {
		cfg.ESI.UserAgent = "flipscan/1.0"
	}
	if cfg.ESI.RatePerSec <= 0 {
		cfg.ESI.RatePerSec = 20
	}
	if cfg.ESI.Timeout <= 0 {
		cfg.ESI.Timeout = 10 * time.Second
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "flipscan.db"
	}
	if cfg.Storage.RetentionDays <= 0 {
		cfg.Storage.RetentionDays = 30
	}
	if cfg.Advisor.Model == "" {
		cfg.Advisor.Model = "gpt-4o-mini"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
