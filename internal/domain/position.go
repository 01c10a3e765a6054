package domain

import "time"

// Position represents a currently held instrument tracked by the ledger.
// EntryPrice is the price observed the first cycle the balance appeared,
// not a real fill price; true fills are not tracked.
type Position struct {
	Market       string    `json:"market"`
	Currency     string    `json:"currency"`
	Quantity     float64   `json:"quantity"`
	EntryPrice   float64   `json:"entry_price"`
	EntryTime    time.Time `json:"entry_time"`
	CurrentPrice float64   `json:"current_price"`
	HighestPrice float64   `json:"highest_price"`
	LowestPrice  float64   `json:"lowest_price"`
	// TrailingStop only ever ratchets upward. Zero means not set.
	TrailingStop float64 `json:"trailing_stop,omitempty"`
}

// ProfitPct returns the unrealized return relative to the entry price.
func (p *Position) ProfitPct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
}

// Order is the result of an accepted market order.
type Order struct {
	UUID      string    `json:"uuid"`
	Market    string    `json:"market"`
	Side      string    `json:"side"` // "bid" or "ask"
	Volume    float64   `json:"volume"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
