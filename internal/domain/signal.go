package domain

import "time"

// SignalRecord is one fused decision for one market at one cycle.
type SignalRecord struct {
	ID          int64     `json:"id"`
	Market      string    `json:"market"`
	Signal      int       `json:"signal"` // -1, 0, +1
	Confidence  float64   `json:"confidence"`
	WeightedSum float64   `json:"weighted_sum"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// PortfolioSnapshot is a periodic account summary kept for offline analysis.
type PortfolioSnapshot struct {
	ID           int64     `json:"id"`
	TotalBalance float64   `json:"total_balance"`
	CashBalance  float64   `json:"cash_balance"`
	RiskLevel    string    `json:"risk_level"`
	CreatedAt    time.Time `json:"created_at"`
}
