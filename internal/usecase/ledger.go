package usecase

import (
	"sort"

	"github.com/vitos/crypto_signal_bot/internal/domain"
)

// Ledger holds one record per currently held instrument. It is exclusively
// owned by the RiskService; every mutation goes through the risk engine's
// entry points, never ad hoc field writes. It keeps no history: a fully
// exited position leaves nothing behind.
type Ledger struct {
	positions map[string]*domain.Position
}

func NewLedger() *Ledger {
	return &Ledger{positions: make(map[string]*domain.Position)}
}

func (l *Ledger) Len() int { return len(l.positions) }

// Get returns a copy of the position so callers cannot mutate ledger state.
func (l *Ledger) Get(market string) (domain.Position, bool) {
	p, ok := l.positions[market]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// All returns copies of every position, ordered by market for deterministic
// cycle processing.
func (l *Ledger) All() []domain.Position {
	markets := l.markets()
	out := make([]domain.Position, 0, len(markets))
	for _, m := range markets {
		out = append(out, *l.positions[m])
	}
	return out
}

func (l *Ledger) markets() []string {
	out := make([]string, 0, len(l.positions))
	for m := range l.positions {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) upsert(p *domain.Position) {
	l.positions[p.Market] = p
}

func (l *Ledger) remove(market string) {
	delete(l.positions, market)
}

func (l *Ledger) reduce(market string, soldVolume float64) {
	p, ok := l.positions[market]
	if !ok {
		return
	}
	p.Quantity -= soldVolume
	if p.Quantity <= 0 {
		delete(l.positions, market)
	}
}
