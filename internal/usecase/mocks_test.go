package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vitos/crypto_signal_bot/internal/domain"
)

var errMock = errors.New("mock failure")

type orderCall struct {
	Market string
	Value  float64 // buy notional or sell volume
}

// MockExchange serves prices, candles and balances from maps and records
// every order. Failure flags make individual calls fail on demand.
type MockExchange struct {
	mu sync.Mutex

	Prices   map[string]float64
	Candles  map[string][]domain.Candle
	Balances map[string]float64

	PriceErr    map[string]bool
	CandlesErr  map[string]bool
	BalancesErr bool
	BuyErr      bool
	SellErr     bool

	// CandlesFn, when set, overrides the Candles map.
	CandlesFn func(market string) ([]domain.Candle, error)

	BuyCalls  []orderCall
	SellCalls []orderCall
}

func newMockExchange() *MockExchange {
	return &MockExchange{
		Prices:     make(map[string]float64),
		Candles:    make(map[string][]domain.Candle),
		Balances:   make(map[string]float64),
		PriceErr:   make(map[string]bool),
		CandlesErr: make(map[string]bool),
	}
}

func (m *MockExchange) GetCurrentPrice(ctx context.Context, market string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PriceErr[market] {
		return 0, errMock
	}
	price, ok := m.Prices[market]
	if !ok {
		return 0, fmt.Errorf("no price for %s", market)
	}
	return price, nil
}

func (m *MockExchange) GetCandles(ctx context.Context, market, interval string, count int) ([]domain.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CandlesFn != nil {
		return m.CandlesFn(market)
	}
	if m.CandlesErr[market] {
		return nil, errMock
	}
	return m.Candles[market], nil
}

func (m *MockExchange) GetBalance(ctx context.Context, currency string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BalancesErr {
		return 0, errMock
	}
	return m.Balances[currency], nil
}

func (m *MockExchange) GetBalances(ctx context.Context) ([]domain.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BalancesErr {
		return nil, errMock
	}
	currencies := make([]string, 0, len(m.Balances))
	for c := range m.Balances {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	out := make([]domain.Balance, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, domain.Balance{Currency: c, Amount: m.Balances[c]})
	}
	return out, nil
}

func (m *MockExchange) BuyMarket(ctx context.Context, market string, amount float64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BuyErr {
		return nil, errMock
	}
	m.BuyCalls = append(m.BuyCalls, orderCall{Market: market, Value: amount})
	return &domain.Order{UUID: fmt.Sprintf("buy-%d", len(m.BuyCalls)), Market: market, Side: "bid", Amount: amount}, nil
}

func (m *MockExchange) SellMarket(ctx context.Context, market string, volume float64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SellErr {
		return nil, errMock
	}
	m.SellCalls = append(m.SellCalls, orderCall{Market: market, Value: volume})
	return &domain.Order{UUID: fmt.Sprintf("sell-%d", len(m.SellCalls)), Market: market, Side: "ask", Volume: volume}, nil
}

// MockNotifier records every notification.
type MockNotifier struct {
	mu         sync.Mutex
	Trades     []string
	Risks      []string
	Portfolios int
	Startups   int
	Errors     []string
}

func (m *MockNotifier) NotifyTrade(action, market, details string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trades = append(m.Trades, action+" "+market)
}

func (m *MockNotifier) NotifyRiskAction(market, action, reason, details string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Risks = append(m.Risks, reason+" "+market)
}

func (m *MockNotifier) NotifyPortfolio(p *domain.Portfolio) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Portfolios++
}

func (m *MockNotifier) NotifyStartup(version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Startups++
}

func (m *MockNotifier) NotifyError(scope, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, scope)
}

// MockSignalRepo records saved signals and snapshots in memory.
type MockSignalRepo struct {
	mu        sync.Mutex
	Signals   []*domain.SignalRecord
	Snapshots []*domain.PortfolioSnapshot
	SaveErr   bool
}

func (m *MockSignalRepo) SaveSignal(ctx context.Context, rec *domain.SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr {
		return errMock
	}
	m.Signals = append(m.Signals, rec)
	return nil
}

func (m *MockSignalRepo) ListSignals(ctx context.Context, market string, limit int) ([]*domain.SignalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SignalRecord
	for _, r := range m.Signals {
		if r.Market == market {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockSignalRepo) SavePortfolioSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshots = append(m.Snapshots, snap)
	return nil
}

func (m *MockSignalRepo) ListPortfolioSnapshots(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Snapshots, nil
}
