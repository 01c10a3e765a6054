package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

// VolumeSurge computes the volume ratio against its rolling average and the
// surge signal: +1 when volume exceeds surgeThreshold times its average and
// the close rose versus the previous bar, -1 when it fell.
func VolumeSurge(period int, surgeThreshold float64) Func {
	return func(f *Frame) error {
		if period <= 0 || surgeThreshold <= 0 {
			return fmt.Errorf("invalid volume params period=%d threshold=%f", period, surgeThreshold)
		}
		n := f.Len()
		volumes := f.Volumes()
		closes := f.Closes()

		volMA := nanSlice(n)
		if n >= period {
			volMA = overlay(talib.Sma(volumes, period), period-1)
		}

		ratio := nanSlice(n)
		for i := range ratio {
			if math.IsNaN(volMA[i]) || volMA[i] == 0 {
				continue
			}
			ratio[i] = volumes[i] / volMA[i]
		}

		sig := nanSlice(n)
		for i := 1; i < n; i++ {
			if math.IsNaN(ratio[i]) {
				continue
			}
			sig[i] = 0
			if ratio[i] > surgeThreshold {
				if closes[i] > closes[i-1] {
					sig[i] = 1
				} else if closes[i] < closes[i-1] {
					sig[i] = -1
				}
			}
		}

		f.Set(ColVolumeRatio, ratio)
		f.Set(ColVolumeSig, sig)
		return nil
	}
}
