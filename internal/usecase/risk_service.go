package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/config"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"go.uber.org/zap"
)

const (
	ReasonStopLoss     = "stop_loss"
	ReasonTrailingStop = "trailing_stop"
	ReasonTakeProfit   = "take_profit"
	ReasonRebalance    = "rebalance"
	ReasonWithinLimits = "within_limits"

	ActionPartialSell = "partial_sell"
)

// RiskAction reports one exit, partial exit or rebalance step.
type RiskAction struct {
	Market    string  `json:"market"`
	Action    string  `json:"action"`
	Reason    string  `json:"reason"`
	Success   bool    `json:"success"`
	Volume    float64 `json:"volume,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Price     float64 `json:"price,omitempty"`
	ProfitPct float64 `json:"profit_pct,omitempty"`
	Remaining float64 `json:"remaining,omitempty"`
	Details   string  `json:"details"`
}

// RiskService supervises open positions: it owns the ledger, refreshes it
// from balances and prices each cycle, enforces stop-loss, trailing-stop and
// take-profit exits, and evaluates portfolio concentration.
type RiskService struct {
	exchange       domain.Exchange
	ledger         *Ledger
	cfg            config.RiskManagement
	minOrderAmount float64
	logger         *zap.Logger

	now    func() time.Time // injectable for tests
	settle func()           // delay between rebalance phases
}

func NewRiskService(
	exchange domain.Exchange,
	cfg config.RiskManagement,
	minOrderAmount float64,
	logger *zap.Logger,
) *RiskService {
	return &RiskService{
		exchange:       exchange,
		ledger:         NewLedger(),
		cfg:            cfg,
		minOrderAmount: minOrderAmount,
		logger:         logger,
		now:            time.Now,
		settle:         func() { time.Sleep(time.Second) },
	}
}

// Positions returns a read-only snapshot of the ledger.
func (r *RiskService) Positions() []domain.Position {
	return r.ledger.All()
}

// UpdatePositions refreshes the ledger from collaborator balance and price
// queries. A position appears the first cycle a nonzero balance is observed
// (entry price assumed equal to the first observed price) and disappears the
// cycle its balance reads zero. A failed price lookup leaves the existing
// record untouched for this cycle.
func (r *RiskService) UpdatePositions(ctx context.Context) error {
	balances, err := r.exchange.GetBalances(ctx)
	if err != nil {
		return fmt.Errorf("refresh balances: %w", err)
	}

	seen := make(map[string]bool)
	for _, b := range balances {
		if b.Currency == quoteCurrency || b.Amount <= 0 {
			continue
		}
		market := quoteCurrency + "-" + b.Currency
		seen[market] = true

		price, err := r.exchange.GetCurrentPrice(ctx, market)
		if err != nil {
			r.logger.Warn("price unavailable, position not refreshed",
				zap.String("market", market), zap.Error(err))
			continue
		}

		if p, ok := r.ledger.positions[market]; ok {
			p.Quantity = b.Amount
			p.CurrentPrice = price
			if price > p.HighestPrice {
				p.HighestPrice = price
			}
			if price < p.LowestPrice {
				p.LowestPrice = price
			}
			if r.cfg.UseTrailingStop {
				r.ratchetTrailingStop(p, price)
			}
		} else {
			p := &domain.Position{
				Market:       market,
				Currency:     b.Currency,
				Quantity:     b.Amount,
				EntryPrice:   price, // first observed price, not a fill price
				EntryTime:    r.now(),
				CurrentPrice: price,
				HighestPrice: price,
				LowestPrice:  price,
			}
			if r.cfg.UseTrailingStop {
				p.TrailingStop = price * (1 - r.cfg.TrailingStop)
			}
			r.ledger.upsert(p)
		}
	}

	// Balances that read zero this cycle terminate their positions.
	for _, p := range r.ledger.All() {
		if !seen[p.Market] {
			r.ledger.remove(p.Market)
		}
	}
	return nil
}

// ratchetTrailingStop raises the trailing stop toward the current price. The
// stop is never lowered, even on a dip.
func (r *RiskService) ratchetTrailingStop(p *domain.Position, price float64) {
	newStop := price * (1 - r.cfg.TrailingStop)
	if newStop > p.TrailingStop {
		p.TrailingStop = newStop
	}
}

// CheckRiskLimits refreshes the ledger and executes any exit each position
// has earned. Actions are returned in market order.
func (r *RiskService) CheckRiskLimits(ctx context.Context) []RiskAction {
	if err := r.UpdatePositions(ctx); err != nil {
		r.logger.Error("position refresh failed, skipping risk checks", zap.Error(err))
		return nil
	}

	var actions []RiskAction
	for _, market := range r.ledger.markets() {
		p := r.ledger.positions[market]
		action, reason := r.checkPositionRisk(p)
		if action == ActionHold {
			continue
		}
		actions = append(actions, r.executeRiskAction(ctx, p, action, reason))
	}
	return actions
}

// checkPositionRisk evaluates exit conditions in fixed priority: stop-loss,
// then trailing-stop, then take-profit. The order protects against
// catastrophic loss first and must not be rearranged.
func (r *RiskService) checkPositionRisk(p *domain.Position) (action, reason string) {
	profit := p.ProfitPct()

	if profit <= -r.cfg.StopLoss {
		return ActionSell, ReasonStopLoss
	}
	if r.cfg.UseTrailingStop && p.TrailingStop > 0 && p.CurrentPrice <= p.TrailingStop {
		return ActionSell, ReasonTrailingStop
	}
	if profit >= r.cfg.TakeProfit {
		return ActionPartialSell, ReasonTakeProfit
	}
	return ActionHold, ReasonWithinLimits
}

func (r *RiskService) executeRiskAction(ctx context.Context, p *domain.Position, action, reason string) RiskAction {
	switch action {
	case ActionSell:
		order, err := r.exchange.SellMarket(ctx, p.Market, p.Quantity)
		if err != nil || order == nil {
			r.logger.Warn("risk exit rejected, position kept",
				zap.String("market", p.Market), zap.String("reason", reason), zap.Error(err))
			return RiskAction{Market: p.Market, Action: ActionHold, Reason: reason,
				Success: false, Details: "sell order failed"}
		}
		r.ledger.remove(p.Market)
		r.logger.Info("position closed",
			zap.String("market", p.Market),
			zap.String("reason", reason),
			zap.Float64("volume", order.Volume),
			zap.Float64("profit_pct", p.ProfitPct()))
		return RiskAction{
			Market:    p.Market,
			Action:    ActionSell,
			Reason:    reason,
			Success:   true,
			Volume:    p.Quantity,
			Price:     p.CurrentPrice,
			ProfitPct: p.ProfitPct(),
			Details:   fmt.Sprintf("closed %.8f at %.2f (%s)", p.Quantity, p.CurrentPrice, reason),
		}

	case ActionPartialSell:
		volume := p.Quantity * r.cfg.PartialSellRatio
		order, err := r.exchange.SellMarket(ctx, p.Market, volume)
		if err != nil || order == nil {
			r.logger.Warn("partial exit rejected, position kept",
				zap.String("market", p.Market), zap.Error(err))
			return RiskAction{Market: p.Market, Action: ActionHold, Reason: reason,
				Success: false, Details: "partial sell order failed"}
		}
		r.ledger.reduce(p.Market, volume)
		remaining := p.Quantity
		r.logger.Info("position reduced",
			zap.String("market", p.Market),
			zap.Float64("volume", volume),
			zap.Float64("remaining", remaining))
		return RiskAction{
			Market:    p.Market,
			Action:    ActionPartialSell,
			Reason:    reason,
			Success:   true,
			Volume:    volume,
			Price:     p.CurrentPrice,
			ProfitPct: p.ProfitPct(),
			Remaining: remaining,
			Details:   fmt.Sprintf("sold %.8f of %s, %.8f remaining", volume, p.Market, remaining),
		}
	}

	return RiskAction{Market: p.Market, Action: ActionHold, Reason: reason, Success: true}
}

// CheckPortfolioRisk computes total balance, per-market exposure and the
// concentration risk level.
func (r *RiskService) CheckPortfolioRisk(ctx context.Context) (*domain.Portfolio, error) {
	cash, err := r.exchange.GetBalance(ctx, quoteCurrency)
	if err != nil {
		return nil, fmt.Errorf("cash balance: %w", err)
	}
	balances, err := r.exchange.GetBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}

	total := cash
	exposure := make(map[string]domain.Exposure)
	for _, b := range balances {
		if b.Currency == quoteCurrency || b.Amount <= 0 {
			continue
		}
		market := quoteCurrency + "-" + b.Currency
		price, err := r.exchange.GetCurrentPrice(ctx, market)
		if err != nil {
			r.logger.Warn("price unavailable, excluded from portfolio",
				zap.String("market", market), zap.Error(err))
			continue
		}
		value := b.Amount * price
		total += value
		exposure[market] = domain.Exposure{Value: value, Quantity: b.Amount, Price: price}
	}

	maxRatio := 0.0
	for market, exp := range exposure {
		if total > 0 {
			exp.Ratio = exp.Value / total
		}
		exposure[market] = exp
		if exp.Ratio > maxRatio {
			maxRatio = exp.Ratio
		}
	}

	level := domain.RiskLow
	switch {
	case maxRatio > 0.5:
		level = domain.RiskHigh
	case maxRatio > 0.3:
		level = domain.RiskMedium
	}

	return &domain.Portfolio{
		TotalBalance: total,
		CashBalance:  cash,
		Exposure:     exposure,
		RiskLevel:    level,
		Timestamp:    r.now(),
	}, nil
}

// Rebalance moves the portfolio toward the target allocation in two phases
// that never interleave: sell every overweight market first, wait for the
// proceeds to settle, then buy the underweights from the refreshed cash
// balance. Any order failure aborts the remainder and returns the partial
// action list.
func (r *RiskService) Rebalance(ctx context.Context, targets map[string]float64) ([]RiskAction, error) {
	portfolio, err := r.CheckPortfolioRisk(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebalance: %w", err)
	}
	if portfolio.TotalBalance <= 0 {
		return nil, fmt.Errorf("rebalance: empty portfolio")
	}

	var actions []RiskAction

	// Phase 1: sell the excess of every overweight market.
	for _, market := range sortedKeys(portfolio.Exposure) {
		exp := portfolio.Exposure[market]
		target := targets[market]
		if exp.Ratio <= target {
			continue
		}
		excessValue := (exp.Ratio - target) * portfolio.TotalBalance
		volume := excessValue / exp.Price
		if volume > exp.Quantity {
			volume = exp.Quantity
		}
		if volume <= 0 {
			continue
		}
		order, err := r.exchange.SellMarket(ctx, market, volume)
		if err != nil || order == nil {
			return actions, fmt.Errorf("rebalance sell %s failed: %w", market, err)
		}
		r.ledger.reduce(market, volume)
		actions = append(actions, RiskAction{
			Market:  market,
			Action:  ActionSell,
			Reason:  ReasonRebalance,
			Success: true,
			Volume:  volume,
			Amount:  volume * exp.Price,
			Price:   exp.Price,
			Details: fmt.Sprintf("sold %.8f to shed %.2f%% overweight", volume, (exp.Ratio-target)*100),
		})
	}

	// Let the sells settle before re-reading cash.
	r.settle()
	cash, err := r.exchange.GetBalance(ctx, quoteCurrency)
	if err != nil {
		return actions, fmt.Errorf("rebalance cash refresh: %w", err)
	}

	// Phase 2: buy every underweight target from available cash.
	for _, market := range sortedTargetKeys(targets) {
		if market == quoteCurrency {
			continue
		}
		target := targets[market]
		current := portfolio.Exposure[market].Ratio
		if current >= target {
			continue
		}
		deficit := (target - current) * portfolio.TotalBalance
		if deficit > cash {
			deficit = cash
		}
		if deficit < r.minOrderAmount {
			continue
		}
		order, err := r.exchange.BuyMarket(ctx, market, deficit)
		if err != nil || order == nil {
			return actions, fmt.Errorf("rebalance buy %s failed: %w", market, err)
		}
		cash -= deficit
		actions = append(actions, RiskAction{
			Market:  market,
			Action:  ActionBuy,
			Reason:  ReasonRebalance,
			Success: true,
			Amount:  deficit,
			Details: fmt.Sprintf("bought %.0f %s toward %.2f%% target", deficit, quoteCurrency, target*100),
		})
	}

	return actions, nil
}

func sortedKeys(m map[string]domain.Exposure) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedTargetKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
