package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"go.uber.org/zap"
)

// quoteCurrency is the cash side of every market this bot trades.
const quoteCurrency = "KRW"

// MinConfidence gates entries and exits identically: a nonzero fused signal
// below this confidence is a hold.
const MinConfidence = 0.6

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// TradeResult reports what the controller did for one market this cycle.
// Success=false with ActionHold means an order was attempted and rejected;
// the ledger is left untouched and there is no retry within the cycle.
type TradeResult struct {
	Market    string  `json:"market"`
	Action    string  `json:"action"`
	Success   bool    `json:"success"`
	OrderUUID string  `json:"order_uuid,omitempty"`
	Amount    float64 `json:"amount,omitempty"` // buy notional
	Volume    float64 `json:"volume,omitempty"` // sell quantity
	Price     float64 `json:"price,omitempty"`
	Details   string  `json:"details"`
}

// StrategyService turns a fused signal plus account state into a bounded
// order intent. It never mutates the position ledger; the ledger picks up
// fills from balance observations on the next cycle.
type StrategyService struct {
	exchange       domain.Exchange
	logger         *zap.Logger
	tradeAmount    float64
	maxInvestRatio float64
	minOrderAmount float64
}

func NewStrategyService(
	exchange domain.Exchange,
	logger *zap.Logger,
	tradeAmount, maxInvestRatio, minOrderAmount float64,
) *StrategyService {
	return &StrategyService{
		exchange:       exchange,
		logger:         logger,
		tradeAmount:    tradeAmount,
		maxInvestRatio: maxInvestRatio,
		minOrderAmount: minOrderAmount,
	}
}

// ExecuteTrade acts on a fused signal for one market.
func (s *StrategyService) ExecuteTrade(ctx context.Context, market string, sig *FusedSignal) *TradeResult {
	if sig == nil || sig.Signal == 0 || sig.Confidence < MinConfidence {
		signal, confidence := 0, 0.0
		if sig != nil {
			signal, confidence = sig.Signal, sig.Confidence
		}
		return &TradeResult{
			Market:  market,
			Action:  ActionHold,
			Success: true,
			Details: fmt.Sprintf("no signal or low confidence (signal: %d, confidence: %.2f)", signal, confidence),
		}
	}

	price, err := s.exchange.GetCurrentPrice(ctx, market)
	if err != nil {
		return &TradeResult{Market: market, Action: ActionHold, Success: false,
			Details: fmt.Sprintf("price unavailable: %v", err)}
	}

	cash, err := s.exchange.GetBalance(ctx, quoteCurrency)
	if err != nil {
		return &TradeResult{Market: market, Action: ActionHold, Success: false,
			Details: fmt.Sprintf("cash balance unavailable: %v", err)}
	}
	coinBalance, err := s.exchange.GetBalance(ctx, CurrencyOf(market))
	if err != nil {
		return &TradeResult{Market: market, Action: ActionHold, Success: false,
			Details: fmt.Sprintf("coin balance unavailable: %v", err)}
	}

	if sig.Signal > 0 {
		return s.enter(ctx, market, price, cash, coinBalance)
	}
	return s.exit(ctx, market, price, coinBalance)
}

func (s *StrategyService) enter(ctx context.Context, market string, price, cash, coinBalance float64) *TradeResult {
	totalAssets := cash + coinBalance*price
	if totalAssets <= 0 {
		return &TradeResult{Market: market, Action: ActionHold, Success: true, Details: "no assets"}
	}

	coinRatio := coinBalance * price / totalAssets
	if coinRatio >= s.maxInvestRatio {
		return &TradeResult{Market: market, Action: ActionHold, Success: true,
			Details: fmt.Sprintf("allocation limit reached (ratio: %.2f%%)", coinRatio*100)}
	}

	// Bounded sizing: fixed amount, 90% of cash to leave room for fees, and
	// whatever headroom remains under the allocation cap.
	amount := s.tradeAmount
	if v := cash * 0.9; v < amount {
		amount = v
	}
	if v := (s.maxInvestRatio - coinRatio) * totalAssets; v < amount {
		amount = v
	}

	if amount < s.minOrderAmount {
		return &TradeResult{Market: market, Action: ActionHold, Success: true,
			Details: fmt.Sprintf("order amount %.0f below exchange minimum %.0f", amount, s.minOrderAmount)}
	}

	order, err := s.exchange.BuyMarket(ctx, market, amount)
	if err != nil || order == nil {
		s.logger.Warn("buy order rejected", zap.String("market", market), zap.Error(err))
		return &TradeResult{Market: market, Action: ActionHold, Success: false, Details: "buy order failed"}
	}

	s.logger.Info("buy order submitted",
		zap.String("market", market),
		zap.String("uuid", order.UUID),
		zap.Float64("amount", amount),
		zap.Float64("price", price))
	return &TradeResult{
		Market:    market,
		Action:    ActionBuy,
		Success:   true,
		OrderUUID: order.UUID,
		Amount:    amount,
		Price:     price,
		Details:   fmt.Sprintf("bought %.0f %s at %.2f", amount, quoteCurrency, price),
	}
}

func (s *StrategyService) exit(ctx context.Context, market string, price, coinBalance float64) *TradeResult {
	if coinBalance <= 0 {
		return &TradeResult{Market: market, Action: ActionHold, Success: true, Details: "no holdings to sell"}
	}

	// Confidence-gated exits liquidate the full held quantity.
	order, err := s.exchange.SellMarket(ctx, market, coinBalance)
	if err != nil || order == nil {
		s.logger.Warn("sell order rejected", zap.String("market", market), zap.Error(err))
		return &TradeResult{Market: market, Action: ActionHold, Success: false, Details: "sell order failed"}
	}

	s.logger.Info("sell order submitted",
		zap.String("market", market),
		zap.String("uuid", order.UUID),
		zap.Float64("volume", coinBalance),
		zap.Float64("price", price))
	return &TradeResult{
		Market:    market,
		Action:    ActionSell,
		Success:   true,
		OrderUUID: order.UUID,
		Volume:    coinBalance,
		Price:     price,
		Details:   fmt.Sprintf("sold %.8f at %.2f", coinBalance, price),
	}
}

// CurrencyOf extracts the traded currency from a market code
// ("KRW-BTC" -> "BTC").
func CurrencyOf(market string) string {
	if idx := strings.Index(market, "-"); idx >= 0 {
		return market[idx+1:]
	}
	return market
}
