package indicator

import (
	"github.com/vitos/crypto_signal_bot/internal/config"
)

// Func computes one indicator's columns on a frame.
type Func func(f *Frame) error

type registered struct {
	name string
	fn   Func
}

// Failure reports an indicator whose computation was skipped.
type Failure struct {
	Name string
	Err  error
}

// Engine applies a registered list of indicator functions to a frame. Fusion
// iterates the columns the indicators produce, so adding or removing an
// indicator never touches fusion logic.
type Engine struct {
	indicators []registered
}

// NewEngine registers the indicators enabled in the strategy config with
// their parameters bound.
func NewEngine(cfg config.Strategy) *Engine {
	e := &Engine{}
	if cfg.MACrossover.Enabled {
		e.Register("ma_crossover", MovingAverageCross(
			cfg.MACrossover.ShortPeriod,
			cfg.MACrossover.LongPeriod,
			cfg.MACrossover.TrendPeriod,
		))
	}
	if cfg.RSI.Enabled {
		e.Register("rsi", RelativeStrength(cfg.RSI.Period))
		if cfg.RSI.UseDivergence {
			e.Register("rsi_divergence", RSIDivergence(cfg.RSI.Period, cfg.RSI.DivergenceWindow))
		}
	}
	if cfg.Bollinger.Enabled {
		e.Register("bollinger", BollingerBands(cfg.Bollinger.Period, cfg.Bollinger.StdDev))
	}
	if cfg.Volume.Enabled {
		e.Register("volume", VolumeSurge(cfg.Volume.Period, cfg.Volume.SurgeThreshold))
	}
	return e
}

func (e *Engine) Register(name string, fn Func) {
	e.indicators = append(e.indicators, registered{name: name, fn: fn})
}

// Apply runs every registered indicator. A failing indicator is skipped and
// reported; the remaining indicators still run so fusion can proceed with
// whatever columns are available.
func (e *Engine) Apply(f *Frame) []Failure {
	var failures []Failure
	for _, ind := range e.indicators {
		if err := ind.fn(f); err != nil {
			failures = append(failures, Failure{Name: ind.name, Err: err})
		}
	}
	return failures
}
