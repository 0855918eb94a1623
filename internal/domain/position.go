package domain

import "time"

// PositionRecord is a point-in-time snapshot of one wallet position. Every
// write is a new row; consumers pick the latest by CapturedAt.
type PositionRecord struct {
	ID                 int64     `json:"id,omitempty"`
	ProxyWallet        string    `json:"proxyWallet"`
	Asset              string    `json:"asset"`
	ConditionID        string    `json:"conditionId"`
	Size               float64   `json:"size"`
	AvgPrice           float64   `json:"avgPrice"`
	InitialValue       float64   `json:"initialValue"`
	CurrentValue       float64   `json:"currentValue"`
	CashPnl            float64   `json:"cashPnl"`
	PercentPnl         float64   `json:"percentPnl"`
	TotalBought        float64   `json:"totalBought"`
	RealizedPnl        float64   `json:"realizedPnl"`
	PercentRealizedPnl float64   `json:"percentRealizedPnl"`
	CurPrice           float64   `json:"curPrice"`
	Redeemable         bool      `json:"redeemable"`
	Mergeable          bool      `json:"mergeable"`
	Title              string    `json:"title"`
	Slug               string    `json:"slug"`
	Icon               string    `json:"icon"`
	EventSlug          string    `json:"eventSlug"`
	Outcome            string    `json:"outcome"`
	OutcomeIndex       int       `json:"outcomeIndex"`
	OppositeOutcome    string    `json:"oppositeOutcome"`
	OppositeAsset      string    `json:"oppositeAsset"`
	EndDate            string    `json:"endDate"`
	NegativeRisk       bool      `json:"negativeRisk"`
	CapturedAt         time.Time `json:"capturedAt"`
}
