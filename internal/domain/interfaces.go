package domain

import "context"

// Exchange defines the market-data, account and order operations the core
// consumes. Every call may fail softly; callers treat an error as "data
// unavailable" and carry on with the cycle.
type Exchange interface {
	GetCurrentPrice(ctx context.Context, market string) (float64, error)
	GetCandles(ctx context.Context, market, interval string, count int) ([]Candle, error)
	GetBalance(ctx context.Context, currency string) (float64, error)
	GetBalances(ctx context.Context) ([]Balance, error)

	// BuyMarket spends a cash notional; SellMarket sells a unit quantity.
	BuyMarket(ctx context.Context, market string, amount float64) (*Order, error)
	SellMarket(ctx context.Context, market string, volume float64) (*Order, error)
}

// Notifier is a fire-and-forget event sink. Implementations swallow their
// own failures; nothing here may affect core control flow.
type Notifier interface {
	NotifyTrade(action, market, details string)
	NotifyRiskAction(market, action, reason, details string)
	NotifyPortfolio(p *Portfolio)
	NotifyStartup(version string)
	NotifyError(scope, message string)
}

// SignalRepository stores fused-signal history and portfolio snapshots for
// offline analysis. Trades are deliberately not persisted.
type SignalRepository interface {
	SaveSignal(ctx context.Context, rec *SignalRecord) error
	ListSignals(ctx context.Context, market string, limit int) ([]*SignalRecord, error)
	SavePortfolioSnapshot(ctx context.Context, snap *PortfolioSnapshot) error
	ListPortfolioSnapshots(ctx context.Context, limit int) ([]*PortfolioSnapshot, error)
}
