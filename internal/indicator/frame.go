// Package indicator computes per-bar technical features and discrete
// directional signals over an ordered OHLCV series. Each indicator is a pure
// function registered with the Engine; rows inside an indicator's warm-up
// window hold NaN and are excluded downstream rather than defaulted to zero.
package indicator

import (
	"math"

	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// Column names produced by the built-in indicators.
const (
	ColMAShort      = "ma_short"
	ColMALong       = "ma_long"
	ColMATrend      = "ma_trend"
	ColMACrossSig   = "ma_cross_signal"
	ColTrendDir     = "trend_direction"
	ColRSI          = "rsi"
	ColRSISig       = "rsi_signal"
	ColRSIDiverg    = "rsi_divergence"
	ColBBMiddle     = "bb_middle"
	ColBBUpper      = "bb_upper"
	ColBBLower      = "bb_lower"
	ColBBBandwidth  = "bb_bandwidth"
	ColBBSig        = "bb_signal"
	ColVolumeRatio  = "volume_ratio"
	ColVolumeSig    = "volume_signal"
)

// Frame carries the candle series and the feature columns derived from it.
// All columns have the same length as Candles; NaN marks an undefined value.
type Frame struct {
	Candles []domain.Candle
	columns map[string][]float64
}

func NewFrame(candles []domain.Candle) *Frame {
	return &Frame{
		Candles: candles,
		columns: make(map[string][]float64),
	}
}

func (f *Frame) Len() int { return len(f.Candles) }

func (f *Frame) Closes() []float64 {
	out := make([]float64, len(f.Candles))
	for i, c := range f.Candles {
		out[i] = c.Close
	}
	return out
}

func (f *Frame) Volumes() []float64 {
	out := make([]float64, len(f.Candles))
	for i, c := range f.Candles {
		out[i] = c.Volume
	}
	return out
}

// Set stores a column. The column must match the frame length.
func (f *Frame) Set(name string, col []float64) {
	f.columns[name] = col
}

func (f *Frame) Has(name string) bool {
	_, ok := f.columns[name]
	return ok
}

func (f *Frame) Column(name string) ([]float64, bool) {
	col, ok := f.columns[name]
	return col, ok
}

// Value returns the column value at index i, and false when the column is
// missing, out of range, or still inside its warm-up window.
func (f *Frame) Value(name string, i int) (float64, bool) {
	col, ok := f.columns[name]
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	v := col[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Last returns the value of the column at the final bar.
func (f *Frame) Last(name string) (float64, bool) {
	return f.Value(name, f.Len()-1)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	nan := math.NaN()
	for i := range out {
		out[i] = nan
	}
	return out
}

// overlay copies src values into a fresh NaN slice starting at warmup,
// leaving the warm-up region undefined regardless of what the TA library
// filled it with.
func overlay(src []float64, warmup int) []float64 {
	out := nanSlice(len(src))
	for i := warmup; i < len(src); i++ {
		out[i] = src[i]
	}
	return out
}
