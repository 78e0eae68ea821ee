package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, int32(10000002), cfg.Scanner.RegionID)
	assert.NotEmpty(t, cfg.Scanner.TypeIDs)
	assert.Equal(t, 10*time.Second, cfg.ESI.Timeout)
	assert.Nil(t, cfg.Params().TargetVolume)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "analysis:\n  buy_fee_rate: 0.02\n"))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Analysis.HorizonDays)
	assert.Equal(t, 0.0, cfg.Analysis.SellFeeRate, "zero fees are kept")
	assert.Equal(t, "https://esi.evetech.net/latest", cfg.ESI.BaseURL)
	assert.Equal(t, "flipscan.db", cfg.Storage.DSN)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, time.Duration(0), cfg.ScanInterval())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLIPSCAN_LOG_LEVEL", "debug")
	t.Setenv("FLIPSCAN_ANALYSIS_TARGET_VOLUME", "250000")
	t.Setenv("FLIPSCAN_SCANNER_TYPE_IDS", "34,35")
	t.Setenv("FLIPSCAN_ADVISOR_API_KEY", "sk-test")
	t.Setenv("FLIPSCAN_ESI_TIMEOUT", "3s")

	cfg, err := Load(writeConfig(t, "log:\n  level: warn\nscanner:\n  type_ids: [36]\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []int32{34, 35}, cfg.Scanner.TypeIDs)
	assert.Equal(t, "sk-test", cfg.Advisor.APIKey)
	assert.Equal(t, 3*time.Second, cfg.ESI.Timeout)
	require.NotNil(t, cfg.Params().TargetVolume)
	assert.Equal(t, int64(250000), *cfg.Params().TargetVolume)
}

func TestLoad_InvalidAnalysis(t *testing.T) {
	_, err := Load(writeConfig(t, "analysis:\n  buy_fee_rate: 1.5\n"))

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "params.buy_fee_rate", verr.Field)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "config.Load: read")
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "analysis: [unclosed"))
	assert.ErrorContains(t, err, "parse YAML")
}

func TestLoad_MinFeasibility(t *testing.T) {
	cfg, err := Load(writeConfig(t, "scanner:\n  min_feasibility: medium\n"))
	require.NoError(t, err)
	assert.Equal(t, "medium", cfg.Scanner.MinFeasibility)

	for _, bad := range []string{"HIGH", "hi", "none"} {
		_, err := Load(writeConfig(t, "scanner:\n  min_feasibility: "+bad+"\n"))

		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr), bad)
		assert.Equal(t, "scanner.min_feasibility", verr.Field)
		assert.Contains(t, verr.Reason, bad)
	}
}

func TestLoad_NegativeMaxVolatility(t *testing.T) {
	_, err := Load(writeConfig(t, "scanner:\n  max_volatility: -1\n"))

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "scanner.max_volatility", verr.Field)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FLIPSCAN_ANALYSIS_BUY_FEE_RATE", "0.02")

	cfg, err := LoadDefaults()
	require.NoError(t, err)

	assert.Equal(t, 0.02, cfg.Analysis.BuyFeeRate)
	assert.Equal(t, 30, cfg.Analysis.HorizonDays)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int32(10000002), cfg.Scanner.RegionID)
}

func TestLoadDefaults_InvalidEnv(t *testing.T) {
	t.Setenv("FLIPSCAN_SCANNER_MIN_FEASIBILITY", "hi")

	_, err := LoadDefaults()
	assert.ErrorContains(t, err, "config.LoadDefaults: scanner")
}
