package main

import (
	"bytes"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/flipscan/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestSetupLogger_JSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	setupLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	slog.Info("hidden")
	slog.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
}

func TestReadInput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	body := `{
		"market": {"region_id": 10000002, "type_id": 34},
		"orders": [{"order_id": 1, "is_buy_order": true, "price": 5, "volume_remain": 10}],
		"params": {"horizon_days": 7}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	in, err := readInput(path, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(34), in.Key.TypeID)
	require.Len(t, in.Orders, 1)
	assert.True(t, in.Orders[0].IsBuySide)
	require.NotNil(t, in.Params)
	assert.Equal(t, 7, in.Params.HorizonDays)
}

func TestReadInput_Stdin(t *testing.T) {
	in, err := readInput("-", strings.NewReader(`{"history": []}`))
	require.NoError(t, err)
	assert.Nil(t, in.Params)
	assert.Empty(t, in.Orders)
}

func TestReadInput_Errors(t *testing.T) {
	_, err := readInput(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.ErrorContains(t, err, "open input")

	_, err = readInput("-", strings.NewReader(`{"orders":`))
	assert.ErrorContains(t, err, "decode input")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.yaml")

	c, err := loadConfig(missing, true)
	require.NoError(t, err)
	assert.Equal(t, 30, c.Analysis.HorizonDays)

	_, err = loadConfig(missing, false)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadConfig_OptionalStillReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  horizon_days: 7\n"), 0o600))

	c, err := loadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Analysis.HorizonDays)

	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  buy_fee_rate: 2\n"), 0o600))
	_, err = loadConfig(path, true)
	assert.Error(t, err, "an invalid file is never replaced by defaults")
}
