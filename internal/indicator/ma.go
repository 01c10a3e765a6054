package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

// MovingAverageCross computes short/long/trend simple moving averages, the
// golden/dead cross signal and the trend direction flag.
//
// The cross signal needs the previous bar's averages, so it is defined from
// index long onward; trend direction from index trend-1.
func MovingAverageCross(short, long, trend int) Func {
	return func(f *Frame) error {
		if short <= 0 || long <= short || trend <= 0 {
			return fmt.Errorf("invalid ma periods short=%d long=%d trend=%d", short, long, trend)
		}
		n := f.Len()
		closes := f.Closes()

		maShort := nanSlice(n)
		if n >= short {
			maShort = overlay(talib.Sma(closes, short), short-1)
		}
		maLong := nanSlice(n)
		if n >= long {
			maLong = overlay(talib.Sma(closes, long), long-1)
		}
		maTrend := nanSlice(n)
		if n >= trend {
			maTrend = overlay(talib.Sma(closes, trend), trend-1)
		}

		f.Set(ColMAShort, maShort)
		f.Set(ColMALong, maLong)
		f.Set(ColMATrend, maTrend)
		f.Set(ColMACrossSig, crossSignals(maShort, maLong))
		f.Set(ColTrendDir, trendDirection(closes, maTrend))
		return nil
	}
}

// crossSignals marks +1 where short crosses above long (previous bar short
// <= long, current short > long) and -1 on the symmetric cross-under.
func crossSignals(short, long []float64) []float64 {
	sig := nanSlice(len(short))
	for i := 1; i < len(short); i++ {
		if math.IsNaN(short[i]) || math.IsNaN(long[i]) ||
			math.IsNaN(short[i-1]) || math.IsNaN(long[i-1]) {
			continue
		}
		sig[i] = 0
		if short[i-1] <= long[i-1] && short[i] > long[i] {
			sig[i] = 1
		} else if short[i-1] >= long[i-1] && short[i] < long[i] {
			sig[i] = -1
		}
	}
	return sig
}

func trendDirection(closes, maTrend []float64) []float64 {
	dir := nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(maTrend[i]) {
			continue
		}
		if closes[i] > maTrend[i] {
			dir[i] = 1
		} else {
			dir[i] = -1
		}
	}
	return dir
}
