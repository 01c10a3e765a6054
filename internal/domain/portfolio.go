package domain

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Exposure is the portfolio share held in a single market.
type Exposure struct {
	Value    float64 `json:"value"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Ratio    float64 `json:"ratio"`
}

// Portfolio is a point-in-time view of the account.
type Portfolio struct {
	TotalBalance float64             `json:"total_balance"`
	CashBalance  float64             `json:"cash_balance"`
	Exposure     map[string]Exposure `json:"exposure"` // keyed by market
	RiskLevel    RiskLevel           `json:"risk_level"`
	Timestamp    time.Time           `json:"timestamp"`
}
