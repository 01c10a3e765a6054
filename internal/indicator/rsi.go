package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// RelativeStrength computes the RSI column and its recovery/fall signal:
// +1 when RSI recovers from below 30 to >= 30, -1 when it drops from above
// 70 to <= 70.
func RelativeStrength(period int) Func {
	return func(f *Frame) error {
		if period <= 0 {
			return fmt.Errorf("invalid rsi period %d", period)
		}
		n := f.Len()

		rsi := nanSlice(n)
		if n > period {
			// Wilder smoothing needs one full period of deltas, so the
			// first defined value sits at index period.
			rsi = overlay(talib.Rsi(f.Closes(), period), period)
		}
		f.Set(ColRSI, rsi)
		f.Set(ColRSISig, rsiSignals(rsi))
		return nil
	}
}

func rsiSignals(rsi []float64) []float64 {
	sig := nanSlice(len(rsi))
	for i := 1; i < len(rsi); i++ {
		if math.IsNaN(rsi[i]) || math.IsNaN(rsi[i-1]) {
			continue
		}
		sig[i] = 0
		if rsi[i-1] < rsiOversold && rsi[i] >= rsiOversold {
			sig[i] = 1
		} else if rsi[i-1] > rsiOverbought && rsi[i] <= rsiOverbought {
			sig[i] = -1
		}
	}
	return sig
}

// RSIDivergence flags bar i with +1 when price made a lower value than
// window bars ago while RSI made a higher one (bullish divergence), and -1
// for the bearish mirror. It requires the RSI column, so it must be
// registered after RelativeStrength.
func RSIDivergence(period, window int) Func {
	return func(f *Frame) error {
		if window <= 0 {
			return fmt.Errorf("invalid divergence window %d", window)
		}
		rsi, ok := f.Column(ColRSI)
		if !ok {
			return fmt.Errorf("rsi column missing; register rsi before divergence")
		}
		n := f.Len()
		closes := f.Closes()

		div := nanSlice(n)
		for i := window; i < n; i++ {
			if math.IsNaN(rsi[i]) || math.IsNaN(rsi[i-window]) {
				continue
			}
			div[i] = 0
			if closes[i] < closes[i-window] && rsi[i] > rsi[i-window] {
				div[i] = 1
			} else if closes[i] > closes[i-window] && rsi[i] < rsi[i-window] {
				div[i] = -1
			}
		}
		f.Set(ColRSIDiverg, div)
		return nil
	}
}
