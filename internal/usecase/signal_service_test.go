package usecase

import (
	"context"
	"math"
	"testing"

	"github.com/vitos/crypto_signal_bot/internal/config"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/indicator"
	"go.uber.org/zap"
)

func testFrame(n int) *indicator.Frame {
	candles := make([]domain.Candle, n)
	for i := range candles {
		candles[i] = domain.Candle{Time: int64(i), Close: 100, Volume: 100}
	}
	return indicator.NewFrame(candles)
}

func constCol(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestFuseFrameAllIndicatorsAgree(t *testing.T) {
	// Every indicator votes +1: the weighted sum is exactly the total
	// weight mass 1.0 and the fused signal is +1.
	f := testFrame(5)
	n := f.Len()
	f.Set(indicator.ColMACrossSig, constCol(n, 1))
	f.Set(indicator.ColRSISig, constCol(n, 1))
	f.Set(indicator.ColRSIDiverg, constCol(n, 1))
	f.Set(indicator.ColBBSig, constCol(n, 1))
	f.Set(indicator.ColVolumeSig, constCol(n, 1))

	fused, sums := FuseFrame(f)
	last := n - 1

	if math.Abs(sums[last]-1.0) > 1e-9 {
		t.Errorf("weighted sum: got %v, want 1.0", sums[last])
	}
	if fused[last] != 1 {
		t.Errorf("fused signal: got %v, want 1", fused[last])
	}
}

func TestFuseFrameMissingIndicatorsAreOmitted(t *testing.T) {
	// Only two of five indicators produced columns. Their weights still
	// apply at full value; the absent ones contribute nothing.
	f := testFrame(3)
	n := f.Len()
	f.Set(indicator.ColMACrossSig, constCol(n, 1)) // weight 0.30
	f.Set(indicator.ColRSISig, constCol(n, 1))     // weight 0.20

	fused, sums := FuseFrame(f)
	last := n - 1

	if math.Abs(sums[last]-0.5) > 1e-9 {
		t.Errorf("weighted sum: got %v, want 0.5", sums[last])
	}
	if fused[last] != 1 {
		t.Errorf("fused signal: got %v, want 1 (0.5 > 0.3)", fused[last])
	}
}

func TestFuseFrameThreshold(t *testing.T) {
	tests := []struct {
		name string
		ma   float64 // weight 0.30
		bb   float64 // weight 0.20
		want float64
	}{
		{"sum exactly at threshold holds", 1, 0, 0},   // 0.30, not > 0.3
		{"sum above threshold buys", 1, 1, 1},         // 0.50
		{"sum below negative threshold sells", -1, -1, -1},
		{"mixed votes cancel", 1, -1, 0}, // 0.10
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testFrame(2)
			f.Set(indicator.ColMACrossSig, constCol(2, tt.ma))
			f.Set(indicator.ColBBSig, constCol(2, tt.bb))

			fused, _ := FuseFrame(f)
			if fused[1] != tt.want {
				t.Errorf("got %v, want %v", fused[1], tt.want)
			}
		})
	}
}

func TestFuseFrameUndefinedBarYieldsNaN(t *testing.T) {
	f := testFrame(3)
	col := constCol(3, 1)
	col[1] = math.NaN()
	f.Set(indicator.ColMACrossSig, col)
	f.Set(indicator.ColRSISig, constCol(3, 1))

	fused, sums := FuseFrame(f)

	if !math.IsNaN(fused[1]) || !math.IsNaN(sums[1]) {
		t.Errorf("bar with an undefined available column must fuse to NaN, got %v/%v", fused[1], sums[1])
	}
	if fused[2] != 1 {
		t.Errorf("defined bars still fuse, got %v", fused[2])
	}
}

func TestFuseFrameNoIndicators(t *testing.T) {
	f := testFrame(2)
	fused, sums := FuseFrame(f)
	if fused[1] != 0 || sums[1] != 0 {
		t.Errorf("no columns means hold, got %v/%v", fused[1], sums[1])
	}
}

func TestConfidenceAtBounds(t *testing.T) {
	f := testFrame(10)
	n := f.Len()
	f.Set(indicator.ColMACrossSig, constCol(n, 1))
	f.Set(indicator.ColMAShort, constCol(n, 105))
	f.Set(indicator.ColMALong, constCol(n, 100))
	f.Set(indicator.ColBBBandwidth, constCol(n, 0.05))
	f.Set(indicator.ColRSI, constCol(n, 35))
	f.Set(indicator.ColVolumeRatio, constCol(n, 2.5))

	fused := constCol(n, 1)
	c := ConfidenceAt(f, fused, n-1)
	if c < 0 || c > 1 {
		t.Errorf("confidence out of range: %v", c)
	}
	// Persistent signal, oversold RSI and surging volume should clear the
	// trade gate comfortably.
	if c < MinConfidence {
		t.Errorf("strong aligned factors should exceed %v, got %v", MinConfidence, c)
	}
}

func TestConfidenceDefaultsWithoutIndicators(t *testing.T) {
	f := testFrame(1)
	fused := []float64{0}
	// Only the persistence factor applies and there is no history: 0/4.
	if c := ConfidenceAt(f, fused, 0); c != 0 {
		t.Errorf("got %v, want 0 with no history and no indicator factors", c)
	}
}

func TestGetSignalHoldsOnCandleFailure(t *testing.T) {
	ex := newMockExchange()
	ex.CandlesErr["KRW-BTC"] = true

	engine := indicator.NewEngine(config.Strategy{})
	svc := NewSignalService(ex, engine, nil, zap.NewNop(), "5", 100)

	if _, err := svc.GetSignal(context.Background(), "KRW-BTC"); err == nil {
		t.Error("expected error when candles are unavailable")
	}
}

func TestGetSignalRecordsHistory(t *testing.T) {
	ex := newMockExchange()
	candles := make([]domain.Candle, 60)
	for i := range candles {
		// Mild oscillation keeps RSI near 50 so no threshold crossing fires.
		close := 100.0 + float64(i%2)
		candles[i] = domain.Candle{Time: int64(i), Close: close, Volume: 100}
	}
	ex.Candles["KRW-BTC"] = candles

	repo := &MockSignalRepo{}
	engine := indicator.NewEngine(config.Strategy{
		RSI: config.RSI{Enabled: true, Period: 14},
	})
	svc := NewSignalService(ex, engine, repo, zap.NewNop(), "5", 60)

	sig, err := svc.GetSignal(context.Background(), "KRW-BTC")
	if err != nil {
		t.Fatalf("GetSignal: %v", err)
	}
	if sig.Signal != 0 {
		t.Errorf("flat prices must not fire a signal, got %d", sig.Signal)
	}
	if len(repo.Signals) != 1 {
		t.Fatalf("expected one recorded signal, got %d", len(repo.Signals))
	}
	if repo.Signals[0].Market != "KRW-BTC" {
		t.Errorf("recorded wrong market: %s", repo.Signals[0].Market)
	}
}

func TestGetSignalSurvivesRepoFailure(t *testing.T) {
	ex := newMockExchange()
	candles := make([]domain.Candle, 30)
	for i := range candles {
		candles[i] = domain.Candle{Time: int64(i), Close: 100, Volume: 100}
	}
	ex.Candles["KRW-BTC"] = candles

	repo := &MockSignalRepo{SaveErr: true}
	engine := indicator.NewEngine(config.Strategy{})
	svc := NewSignalService(ex, engine, repo, zap.NewNop(), "5", 30)

	if _, err := svc.GetSignal(context.Background(), "KRW-BTC"); err != nil {
		t.Errorf("history persistence is best effort, got error: %v", err)
	}
}
