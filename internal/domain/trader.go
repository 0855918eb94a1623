package domain

import "time"

// Trader is a leaderboard entry ranked by profit.
type Trader struct {
	ProxyWallet           string  `json:"proxyWallet"`
	Amount                float64 `json:"amount"`
	Pseudonym             string  `json:"pseudonym"`
	Name                  string  `json:"name"`
	Bio                   string  `json:"bio"`
	ProfileImage          string  `json:"profileImage"`
	ProfileImageOptimized string  `json:"profileImageOptimized"`
}

// ActiveTrader is a Trader whose open position value exceeds a threshold,
// enriched with the current value and number of traded markets.
type ActiveTrader struct {
	Trader
	CurrentValue float64 `json:"current_value"`
	Trades       int     `json:"trades"`
}

// TradedCount is a snapshot of how many markets a wallet has traded.
type TradedCount struct {
	User       string    `json:"user"`
	Traded     int       `json:"traded"`
	CapturedAt time.Time `json:"capturedAt"`
}

// ValueSnapshot is a snapshot of the total value of a wallet's positions.
type ValueSnapshot struct {
	User       string    `json:"user"`
	Value      float64   `json:"value"`
	CapturedAt time.Time `json:"capturedAt"`
}
