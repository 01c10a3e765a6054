package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/indicator"
	"go.uber.org/zap"
)

// Fusion weights per indicator signal column. Missing columns are omitted
// from the sum entirely, never counted as zero.
var fusionWeights = []struct {
	Column string
	Weight float64
}{
	{indicator.ColMACrossSig, 0.30},
	{indicator.ColRSISig, 0.20},
	{indicator.ColRSIDiverg, 0.15},
	{indicator.ColBBSig, 0.20},
	{indicator.ColVolumeSig, 0.15},
}

// fuseThreshold discretizes the weighted sum into {-1, 0, +1}.
const fuseThreshold = 0.3

// FusedSignal is the single decision derived from all enabled indicators for
// one market at the latest bar.
type FusedSignal struct {
	Market      string  `json:"market"`
	Signal      int     `json:"signal"`
	Confidence  float64 `json:"confidence"`
	WeightedSum float64 `json:"weighted_sum"`
	Price       float64 `json:"price"`
}

// SignalService fetches candles, runs the indicator engine and fuses the
// per-indicator signals into one decision with a confidence score.
type SignalService struct {
	exchange    domain.Exchange
	engine      *indicator.Engine
	repo        domain.SignalRepository // optional history sink, may be nil
	logger      *zap.Logger
	interval    string
	candleCount int
	now         func() time.Time
}

func NewSignalService(
	exchange domain.Exchange,
	engine *indicator.Engine,
	repo domain.SignalRepository,
	logger *zap.Logger,
	interval string,
	candleCount int,
) *SignalService {
	return &SignalService{
		exchange:    exchange,
		engine:      engine,
		repo:        repo,
		logger:      logger,
		interval:    interval,
		candleCount: candleCount,
		now:         time.Now,
	}
}

// GetSignal computes the fused signal for the latest bar. An error means the
// market data was unavailable; the caller holds and moves on.
func (s *SignalService) GetSignal(ctx context.Context, market string) (*FusedSignal, error) {
	candles, err := s.exchange.GetCandles(ctx, market, s.interval, s.candleCount)
	if err != nil {
		return nil, fmt.Errorf("fetch candles for %s: %w", market, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles returned for %s", market)
	}

	frame := indicator.NewFrame(candles)
	for _, failure := range s.engine.Apply(frame) {
		// A failing indicator is skipped; fusion proceeds with the rest.
		s.logger.Warn("indicator skipped",
			zap.String("market", market),
			zap.String("indicator", failure.Name),
			zap.Error(failure.Err))
	}

	fused, sums := FuseFrame(frame)
	last := frame.Len() - 1

	sig := &FusedSignal{
		Market: market,
		Price:  candles[last].Close,
	}
	if !math.IsNaN(fused[last]) {
		sig.Signal = int(fused[last])
		sig.WeightedSum = sums[last]
	}
	sig.Confidence = ConfidenceAt(frame, fused, last)

	if s.repo != nil {
		rec := &domain.SignalRecord{
			Market:      market,
			Signal:      sig.Signal,
			Confidence:  sig.Confidence,
			WeightedSum: sig.WeightedSum,
			Price:       sig.Price,
			CreatedAt:   s.now(),
		}
		if err := s.repo.SaveSignal(ctx, rec); err != nil {
			s.logger.Warn("failed to save signal record", zap.String("market", market), zap.Error(err))
		}
	}

	return sig, nil
}

// FuseFrame computes the per-bar fused signal and its weighted sum. A bar
// where any available signal column is still undefined yields NaN and is
// excluded from downstream decisions for that bar only.
func FuseFrame(f *indicator.Frame) (fused, sums []float64) {
	n := f.Len()
	fused = make([]float64, n)
	sums = make([]float64, n)

	for i := 0; i < n; i++ {
		var sum float64
		available := 0
		defined := true
		for _, fw := range fusionWeights {
			if !f.Has(fw.Column) {
				continue
			}
			available++
			v, ok := f.Value(fw.Column, i)
			if !ok {
				defined = false
				break
			}
			sum += v * fw.Weight
		}

		switch {
		case available == 0:
			fused[i], sums[i] = 0, 0
		case !defined:
			fused[i], sums[i] = math.NaN(), math.NaN()
		case sum > fuseThreshold:
			fused[i], sums[i] = 1, sum
		case sum < -fuseThreshold:
			fused[i], sums[i] = -1, sum
		default:
			fused[i], sums[i] = 0, sum
		}
	}
	return fused, sums
}

// ConfidenceAt estimates how trustworthy the fused signal at bar i is. It is
// the mean of up to five factors, each normalized to [0,1] and included only
// when its underlying indicator is present; 0.5 when none are available.
func ConfidenceAt(f *indicator.Frame, fused []float64, i int) float64 {
	var factors []float64

	sig := 0
	if i >= 0 && i < len(fused) && !math.IsNaN(fused[i]) {
		sig = int(fused[i])
	}

	// 1. Signal persistence over the previous four bars.
	consistent := 0
	for k := 1; k <= 4; k++ {
		j := i - k
		if j >= 0 && !math.IsNaN(fused[j]) && int(fused[j]) == sig {
			consistent++
		}
	}
	factors = append(factors, float64(consistent)/4.0)

	// 2. Crossover strength, only while a cross is actually firing.
	if v, ok := f.Value(indicator.ColMACrossSig, i); ok && v != 0 {
		short, okS := f.Value(indicator.ColMAShort, i)
		long, okL := f.Value(indicator.ColMALong, i)
		close := f.Candles[i].Close
		if okS && okL && close > 0 {
			diff := math.Abs(short-long) / close
			factors = append(factors, clamp01((diff-0.001)/0.049))
		}
	}

	// 3. Band width: tighter bands mean more conviction in a breakout.
	if bw, ok := f.Value(indicator.ColBBBandwidth, i); ok {
		factors = append(factors, 1.0-clamp01((bw-0.03)/0.12))
	}

	// 4. RSI distance from the relevant threshold.
	if rsi, ok := f.Value(indicator.ColRSI, i); ok {
		switch {
		case sig > 0:
			factors = append(factors, 1.0-clamp01((rsi-30)/20))
		case sig < 0:
			factors = append(factors, clamp01((rsi-50)/20))
		default:
			factors = append(factors, 0.5)
		}
	}

	// 5. Volume ratio.
	if ratio, ok := f.Value(indicator.ColVolumeRatio, i); ok {
		factors = append(factors, clamp01((ratio-1.0)/2.0))
	}

	if len(factors) == 0 {
		return 0.5
	}
	var sum float64
	for _, v := range factors {
		sum += v
	}
	return sum / float64(len(factors))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
