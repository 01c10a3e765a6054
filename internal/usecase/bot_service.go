package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/metrics"
	"go.uber.org/zap"
)

// BotService orchestrates one decision cycle: per-market signal, trade and
// risk processing, with periodic portfolio reporting and rebalancing. Cycles
// run to completion on a single goroutine; cancellation is observed between
// cycles by the caller, not inside one.
type BotService struct {
	signals  *SignalService
	strategy *StrategyService
	risk     *RiskService
	notifier domain.Notifier
	repo     domain.SignalRepository
	logger   *zap.Logger

	markets          []string
	cycleDelay       time.Duration
	portfolioEvery   int
	rebalanceEvery   int
	rebalanceTargets map[string]float64

	cycles int
}

func NewBotService(
	signals *SignalService,
	strategy *StrategyService,
	risk *RiskService,
	notifier domain.Notifier,
	repo domain.SignalRepository,
	logger *zap.Logger,
	markets []string,
	cycleDelay time.Duration,
	portfolioEvery int,
	rebalanceEvery int,
	rebalanceTargets map[string]float64,
) *BotService {
	return &BotService{
		signals:          signals,
		strategy:         strategy,
		risk:             risk,
		notifier:         notifier,
		repo:             repo,
		logger:           logger,
		markets:          markets,
		cycleDelay:       cycleDelay,
		portfolioEvery:   portfolioEvery,
		rebalanceEvery:   rebalanceEvery,
		rebalanceTargets: rebalanceTargets,
	}
}

// RunCycle executes one full decision cycle over all configured markets.
// A failure in one market never blocks the others.
func (b *BotService) RunCycle(ctx context.Context) {
	start := time.Now()
	b.cycles++
	metrics.CyclesTotal.Inc()
	b.logger.Info("cycle started", zap.Int("cycle", b.cycles))

	for i, market := range b.markets {
		if i > 0 && b.cycleDelay > 0 {
			time.Sleep(b.cycleDelay)
		}
		b.processMarket(ctx, market)
	}

	for _, action := range b.risk.CheckRiskLimits(ctx) {
		metrics.RiskActionsTotal.WithLabelValues(action.Reason).Inc()
		if b.notifier != nil {
			b.notifier.NotifyRiskAction(action.Market, action.Action, action.Reason, action.Details)
		}
	}

	if b.portfolioEvery > 0 && b.cycles%b.portfolioEvery == 0 {
		b.reportPortfolio(ctx)
	}

	if b.rebalanceEvery > 0 && b.cycles%b.rebalanceEvery == 0 && len(b.rebalanceTargets) > 0 {
		actions, err := b.risk.Rebalance(ctx, b.rebalanceTargets)
		if err != nil {
			b.logger.Error("rebalance aborted", zap.Error(err), zap.Int("completed", len(actions)))
		}
		for _, action := range actions {
			metrics.RiskActionsTotal.WithLabelValues(action.Reason).Inc()
		}
	}

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	b.logger.Info("cycle finished",
		zap.Int("cycle", b.cycles),
		zap.Duration("elapsed", time.Since(start)))
}

// processMarket runs the signal-trade pipeline for one market. Panics are
// contained here so a single bad market cannot take down the cycle.
func (b *BotService) processMarket(ctx context.Context, market string) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("market processing panicked", zap.String("market", market), zap.Any("panic", rec))
			if b.notifier != nil {
				b.notifier.NotifyError(market, fmt.Sprintf("panic: %v", rec))
			}
		}
	}()

	fused, err := b.signals.GetSignal(ctx, market)
	if err != nil {
		b.logger.Warn("signal unavailable, holding",
			zap.String("market", market), zap.Error(err))
		return
	}
	metrics.SignalsTotal.WithLabelValues(market, strconv.Itoa(fused.Signal)).Inc()

	result := b.strategy.ExecuteTrade(ctx, market, fused)
	if result.Action == ActionHold {
		if !result.Success {
			metrics.OrderFailuresTotal.WithLabelValues(market).Inc()
		}
		return
	}

	side := "bid"
	if result.Action == ActionSell {
		side = "ask"
	}
	metrics.OrdersTotal.WithLabelValues(market, side).Inc()
	if b.notifier != nil {
		b.notifier.NotifyTrade(result.Action, result.Market, result.Details)
	}
}

func (b *BotService) reportPortfolio(ctx context.Context) {
	portfolio, err := b.risk.CheckPortfolioRisk(ctx)
	if err != nil {
		b.logger.Error("portfolio report failed", zap.Error(err))
		return
	}
	b.logger.Info("portfolio",
		zap.Float64("total", portfolio.TotalBalance),
		zap.Float64("cash", portfolio.CashBalance),
		zap.String("risk_level", string(portfolio.RiskLevel)))

	if b.repo != nil {
		snap := &domain.PortfolioSnapshot{
			TotalBalance: portfolio.TotalBalance,
			CashBalance:  portfolio.CashBalance,
			RiskLevel:    string(portfolio.RiskLevel),
			CreatedAt:    portfolio.Timestamp,
		}
		if err := b.repo.SavePortfolioSnapshot(ctx, snap); err != nil {
			b.logger.Warn("snapshot not saved", zap.Error(err))
		}
	}
	if b.notifier != nil {
		b.notifier.NotifyPortfolio(portfolio)
	}
}

// Cycles reports the number of completed cycles since start.
func (b *BotService) Cycles() int { return b.cycles }
