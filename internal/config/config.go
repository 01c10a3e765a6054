// Package config exposes the typed application configuration loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type App struct {
	Name        string `yaml:"name"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type Exchange struct {
	RESTEndpoint string `yaml:"rest_endpoint"`
	WSEndpoint   string `yaml:"ws_endpoint"`
}

type Trading struct {
	Markets []string `yaml:"markets"`
	// Interval is the cycle period in minutes; it also selects the candle
	// interval requested from the exchange ("minute5" etc.).
	Interval       int     `yaml:"interval"`
	CandleCount    int     `yaml:"candle_count"`
	TradeAmount    float64 `yaml:"trade_amount"`
	MaxInvestRatio float64 `yaml:"max_invest_ratio"`
	MinOrderAmount float64 `yaml:"min_order_amount"`
	CycleDelayMs   int     `yaml:"cycle_delay_ms"`
}

type MACrossover struct {
	Enabled     bool `yaml:"enabled"`
	ShortPeriod int  `yaml:"short_period"`
	LongPeriod  int  `yaml:"long_period"`
	TrendPeriod int  `yaml:"trend_period"`
}

type RSI struct {
	Enabled          bool `yaml:"enabled"`
	Period           int  `yaml:"period"`
	UseDivergence    bool `yaml:"use_divergence"`
	DivergenceWindow int  `yaml:"divergence_window"`
}

type Bollinger struct {
	Enabled bool    `yaml:"enabled"`
	Period  int     `yaml:"period"`
	StdDev  float64 `yaml:"std_dev"`
}

type Volume struct {
	Enabled        bool    `yaml:"enabled"`
	Period         int     `yaml:"period"`
	SurgeThreshold float64 `yaml:"surge_threshold"`
}

type Strategy struct {
	MACrossover MACrossover `yaml:"ma_crossover"`
	RSI         RSI         `yaml:"rsi"`
	Bollinger   Bollinger   `yaml:"bollinger"`
	Volume      Volume      `yaml:"volume"`
}

type RiskManagement struct {
	StopLoss         float64 `yaml:"stop_loss"`
	TakeProfit       float64 `yaml:"take_profit"`
	TrailingStop     float64 `yaml:"trailing_stop"`
	UseTrailingStop  bool    `yaml:"use_trailing_stop"`
	PartialSellRatio float64 `yaml:"partial_sell_ratio"`
}

type Portfolio struct {
	RebalanceEnabled bool `yaml:"rebalance_enabled"`
	// RebalanceEveryNCycles spaces rebalances out; 0 disables even when
	// rebalancing is enabled.
	RebalanceEveryNCycles int                `yaml:"rebalance_every_n_cycles"`
	Targets               map[string]float64 `yaml:"targets"`
}

type Telegram struct {
	Enabled bool `yaml:"enabled"`
}

type Notification struct {
	Telegram Telegram `yaml:"telegram"`
}

type Storage struct {
	Path string `yaml:"path"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Config struct {
	App            App            `yaml:"app"`
	Exchange       Exchange       `yaml:"exchange"`
	Trading        Trading        `yaml:"trading"`
	Strategy       Strategy       `yaml:"strategy"`
	RiskManagement RiskManagement `yaml:"risk_management"`
	Portfolio      Portfolio      `yaml:"portfolio"`
	Notification   Notification   `yaml:"notification"`
	Storage        Storage        `yaml:"storage"`
	Server         Server         `yaml:"server"`
}

// Load reads the YAML file at path, applies defaults and validates the
// sections the trading cycle cannot run without.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Trading.Interval == 0 {
		c.Trading.Interval = 5
	}
	if c.Trading.CandleCount == 0 {
		c.Trading.CandleCount = 100
	}
	if c.Trading.MinOrderAmount == 0 {
		c.Trading.MinOrderAmount = 5000 // Upbit minimum notional (KRW)
	}
	if c.Trading.CycleDelayMs == 0 {
		c.Trading.CycleDelayMs = 500
	}
	if c.Strategy.MACrossover.ShortPeriod == 0 {
		c.Strategy.MACrossover.ShortPeriod = 9
	}
	if c.Strategy.MACrossover.LongPeriod == 0 {
		c.Strategy.MACrossover.LongPeriod = 21
	}
	if c.Strategy.MACrossover.TrendPeriod == 0 {
		c.Strategy.MACrossover.TrendPeriod = 50
	}
	if c.Strategy.RSI.Period == 0 {
		c.Strategy.RSI.Period = 14
	}
	if c.Strategy.RSI.DivergenceWindow == 0 {
		c.Strategy.RSI.DivergenceWindow = 10
	}
	if c.Strategy.Bollinger.Period == 0 {
		c.Strategy.Bollinger.Period = 20
	}
	if c.Strategy.Bollinger.StdDev == 0 {
		c.Strategy.Bollinger.StdDev = 2.0
	}
	if c.Strategy.Volume.Period == 0 {
		c.Strategy.Volume.Period = 20
	}
	if c.Strategy.Volume.SurgeThreshold == 0 {
		c.Strategy.Volume.SurgeThreshold = 2.0
	}
	if c.RiskManagement.PartialSellRatio == 0 {
		c.RiskManagement.PartialSellRatio = 0.5
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "bot.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
}

func (c *Config) validate() error {
	if len(c.Trading.Markets) == 0 {
		return fmt.Errorf("trading.markets must list at least one market")
	}
	if c.Trading.TradeAmount <= 0 {
		return fmt.Errorf("trading.trade_amount must be positive")
	}
	if c.Trading.MaxInvestRatio <= 0 || c.Trading.MaxInvestRatio > 1 {
		return fmt.Errorf("trading.max_invest_ratio must be in (0, 1]")
	}
	return nil
}
