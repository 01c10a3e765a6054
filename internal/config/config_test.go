package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
trading:
  markets: [KRW-BTC]
  trade_amount: 100000
  max_invest_ratio: 0.3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 5, cfg.Trading.Interval)
	assert.Equal(t, 100, cfg.Trading.CandleCount)
	assert.Equal(t, 5000.0, cfg.Trading.MinOrderAmount)
	assert.Equal(t, 9, cfg.Strategy.MACrossover.ShortPeriod)
	assert.Equal(t, 21, cfg.Strategy.MACrossover.LongPeriod)
	assert.Equal(t, 50, cfg.Strategy.MACrossover.TrendPeriod)
	assert.Equal(t, 14, cfg.Strategy.RSI.Period)
	assert.Equal(t, 20, cfg.Strategy.Bollinger.Period)
	assert.Equal(t, 2.0, cfg.Strategy.Bollinger.StdDev)
	assert.Equal(t, 0.5, cfg.RiskManagement.PartialSellRatio)
	assert.Equal(t, "bot.db", cfg.Storage.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
trading:
  markets: [KRW-BTC, KRW-ETH]
  interval: 15
  trade_amount: 50000
  max_invest_ratio: 0.5
risk_management:
  stop_loss: 0.02
  take_profit: 0.08
  trailing_stop: 0.015
  use_trailing_stop: true
  partial_sell_ratio: 0.25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, []string{"KRW-BTC", "KRW-ETH"}, cfg.Trading.Markets)
	assert.Equal(t, 15, cfg.Trading.Interval)
	assert.Equal(t, 0.02, cfg.RiskManagement.StopLoss)
	assert.Equal(t, 0.25, cfg.RiskManagement.PartialSellRatio)
	assert.True(t, cfg.RiskManagement.UseTrailingStop)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "no markets",
			body: "trading:\n  trade_amount: 100000\n  max_invest_ratio: 0.3\n",
		},
		{
			name: "zero trade amount",
			body: "trading:\n  markets: [KRW-BTC]\n  max_invest_ratio: 0.3\n",
		},
		{
			name: "invest ratio above one",
			body: "trading:\n  markets: [KRW-BTC]\n  trade_amount: 100000\n  max_invest_ratio: 1.5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
