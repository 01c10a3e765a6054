package usecase

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"
)

func newTestStrategy(ex *MockExchange) *StrategyService {
	// 100k fixed notional, 30% allocation cap, 5000 exchange minimum.
	return NewStrategyService(ex, zap.NewNop(), 100000, 0.3, 5000)
}

func buySignal(confidence float64) *FusedSignal {
	return &FusedSignal{Market: "KRW-BTC", Signal: 1, Confidence: confidence, WeightedSum: 0.65}
}

func TestExecuteTradeGatesOnConfidence(t *testing.T) {
	ex := newMockExchange()
	svc := newTestStrategy(ex)

	tests := []struct {
		name string
		sig  *FusedSignal
	}{
		{"nil signal", nil},
		{"zero signal", &FusedSignal{Signal: 0, Confidence: 0.9}},
		{"confidence below gate", &FusedSignal{Signal: 1, Confidence: 0.59}},
		{"sell below gate", &FusedSignal{Signal: -1, Confidence: 0.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.ExecuteTrade(context.Background(), "KRW-BTC", tt.sig)
			if res.Action != ActionHold || !res.Success {
				t.Errorf("got %s success=%v, want successful hold", res.Action, res.Success)
			}
			if len(ex.BuyCalls)+len(ex.SellCalls) != 0 {
				t.Error("gated signal must not reach the exchange")
			}
		})
	}
}

func TestExecuteTradeBuySizing(t *testing.T) {
	ex := newMockExchange()
	ex.Prices["KRW-BTC"] = 50000000
	ex.Balances["KRW"] = 1000000
	ex.Balances["BTC"] = 0
	svc := newTestStrategy(ex)

	res := svc.ExecuteTrade(context.Background(), "KRW-BTC", buySignal(0.8))

	if res.Action != ActionBuy || !res.Success {
		t.Fatalf("got %s success=%v, want successful buy", res.Action, res.Success)
	}
	if len(ex.BuyCalls) != 1 {
		t.Fatalf("expected one buy order, got %d", len(ex.BuyCalls))
	}
	// min(100000 fixed, 900000 cash*0.9, 0.3*1000000 cap headroom) = 100000.
	if math.Abs(ex.BuyCalls[0].Value-100000) > 1e-6 {
		t.Errorf("order notional: got %v, want 100000", ex.BuyCalls[0].Value)
	}
}

func TestExecuteTradeBuyCappedByCash(t *testing.T) {
	ex := newMockExchange()
	ex.Prices["KRW-BTC"] = 50000000
	ex.Balances["KRW"] = 50000
	svc := newTestStrategy(ex)

	res := svc.ExecuteTrade(context.Background(), "KRW-BTC", buySignal(0.8))

	if res.Action != ActionBuy {
		t.Fatalf("got %s, want buy", res.Action)
	}
	// 0.3 * 50000 = 15000 headroom binds before 0.9 * 50000 cash.
	if math.Abs(ex.BuyCalls[0].Value-15000) > 1e-6 {
		t.Errorf("order notional: got %v, want 15000", ex.BuyCalls[0].Value)
	}
}

func TestExecuteTradeRejectsBelowMinimumNotional(t *testing.T) {
	// With 4999 KRW of total assets the bounded size lands under the 5000
	// exchange minimum, so the controller holds without ordering.
	ex := newMockExchange()
	ex.Prices["KRW-BTC"] = 50000000
	ex.Balances["KRW"] = 4999
	svc := newTestStrategy(ex)

	res := svc.ExecuteTrade(context.Background(), "KRW-BTC", buySignal(0.9))

	if res.Action != ActionHold || !res.Success {
		t.Errorf("got %s success=%v, want successful hold", res.Action, res.Success)
	}
	if len(ex.BuyCalls) != 0 {
		t.Error("sub-minimum order must not reach the exchange")
	}
}

func TestExecuteTradeRespectsAllocationCap(t *testing.T) {
	ex := newMockExchange()
	ex.Prices["KRW-BTC"] = 100
	ex.Balances["KRW"] = 100000
	ex.Balances["BTC"] = 600 // 60000 KRW held, ratio 0.375 >= 0.3
	svc := newTestStrategy(ex)

	res := svc.ExecuteTrade(context.Background(), "KRW-BTC", buySignal(0.8))

	if res.Action != ActionHold || !res.Success {
		t.Errorf("got %s success=%v, want hold at allocation cap", res.Action, res.Success)
	}
	if len(ex.BuyCalls) != 0 {
		t.Error("capped allocation must not buy")
	}
}

func TestExecuteTradeSellLiquidatesFully(t *testing.T) {
	ex := newMockExchange()
	ex.Prices["KRW-BTC"] = 100
	ex.Balances["KRW"] = 1000
	ex.Balances["BTC"] = 2.5
	svc := newTestStrategy(ex)

	sig := &FusedSignal{Market: "KRW-BTC", Signal: -1, Confidence: 0.9}
	res := svc.ExecuteTrade(context.Background(), "KRW-BTC", sig)

	if res.Action != ActionSell || !res.Success {
		t.Fatalf("got %s success=%v, want successful sell", res.Action, res.Success)
	}
	if len(ex.SellCalls) != 1 || ex.SellCalls[0].Value != 2.5 {
		t.Errorf("exit must liquidate the full quantity, got %+v", ex.SellCalls)
	}
}

func TestExecuteTradeSellWithoutHoldings(t *testing.T) {
	ex := newMockExchange()
	ex.Prices["KRW-BTC"] = 100
	ex.Balances["KRW"] = 1000
	svc := newTestStrategy(ex)

	sig := &FusedSignal{Market: "KRW-BTC", Signal: -1, Confidence: 0.9}
	res := svc.ExecuteTrade(context.Background(), "KRW-BTC", sig)

	if res.Action != ActionHold || !res.Success {
		t.Errorf("got %s success=%v, want hold with nothing to sell", res.Action, res.Success)
	}
	if len(ex.SellCalls) != 0 {
		t.Error("no holdings means no order")
	}
}

func TestExecuteTradeOrderFailureIsHold(t *testing.T) {
	ex := newMockExchange()
	ex.Prices["KRW-BTC"] = 100
	ex.Balances["KRW"] = 1000000
	ex.BuyErr = true
	svc := newTestStrategy(ex)

	res := svc.ExecuteTrade(context.Background(), "KRW-BTC", buySignal(0.8))

	// A rejected order degrades to a hold; no retry within the cycle.
	if res.Action != ActionHold || res.Success {
		t.Errorf("got %s success=%v, want failed hold", res.Action, res.Success)
	}
}

func TestExecuteTradePriceFailureIsHold(t *testing.T) {
	ex := newMockExchange()
	ex.PriceErr["KRW-BTC"] = true
	svc := newTestStrategy(ex)

	res := svc.ExecuteTrade(context.Background(), "KRW-BTC", buySignal(0.8))
	if res.Action != ActionHold || res.Success {
		t.Errorf("got %s success=%v, want failed hold on missing price", res.Action, res.Success)
	}
}

func TestCurrencyOf(t *testing.T) {
	if got := CurrencyOf("KRW-BTC"); got != "BTC" {
		t.Errorf("got %s, want BTC", got)
	}
	if got := CurrencyOf("BTC"); got != "BTC" {
		t.Errorf("got %s, want BTC for bare code", got)
	}
}
