package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

// BollingerBands computes the middle/upper/lower bands, the relative
// bandwidth and the touch-and-bounce signal: +1 when the previous close sat
// at or below the previous lower band and the current close bounced back
// above the current lower band, -1 for the mirror case at the upper band.
func BollingerBands(period int, stdDev float64) Func {
	return func(f *Frame) error {
		if period <= 1 || stdDev <= 0 {
			return fmt.Errorf("invalid bollinger params period=%d std_dev=%f", period, stdDev)
		}
		n := f.Len()
		closes := f.Closes()

		upper := nanSlice(n)
		middle := nanSlice(n)
		lower := nanSlice(n)
		if n >= period {
			u, m, l := talib.BBands(closes, period, stdDev, stdDev, talib.SMA)
			upper = overlay(u, period-1)
			middle = overlay(m, period-1)
			lower = overlay(l, period-1)
		}

		bandwidth := nanSlice(n)
		for i := range bandwidth {
			if math.IsNaN(middle[i]) || middle[i] == 0 {
				continue
			}
			bandwidth[i] = (upper[i] - lower[i]) / middle[i]
		}

		f.Set(ColBBUpper, upper)
		f.Set(ColBBMiddle, middle)
		f.Set(ColBBLower, lower)
		f.Set(ColBBBandwidth, bandwidth)
		f.Set(ColBBSig, bounceSignals(closes, upper, lower))
		return nil
	}
}

func bounceSignals(closes, upper, lower []float64) []float64 {
	sig := nanSlice(len(closes))
	for i := 1; i < len(closes); i++ {
		if math.IsNaN(upper[i]) || math.IsNaN(lower[i]) ||
			math.IsNaN(upper[i-1]) || math.IsNaN(lower[i-1]) {
			continue
		}
		sig[i] = 0
		if closes[i-1] <= lower[i-1] && closes[i] > lower[i] && closes[i] > closes[i-1] {
			sig[i] = 1
		} else if closes[i-1] >= upper[i-1] && closes[i] < upper[i] && closes[i] < closes[i-1] {
			sig[i] = -1
		}
	}
	return sig
}
