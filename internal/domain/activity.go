package domain

import "strings"

// Side is the direction of a trade as reported by the data API.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalises a raw side string. Unknown values yield "".
func ParseSide(s string) Side {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy
	case "SELL":
		return SideSell
	default:
		return ""
	}
}

// ActivityType classifies an activity row.
type ActivityType string

const (
	ActivityTrade      ActivityType = "TRADE"
	ActivityRedeem     ActivityType = "REDEEM"
	ActivitySplit      ActivityType = "SPLIT"
	ActivityMerge      ActivityType = "MERGE"
	ActivityReward     ActivityType = "REWARD"
	ActivityConversion ActivityType = "CONVERSION"
)

// ActivityRecord is one normalized entry of a wallet's on-chain activity.
// Records are immutable once written; the natural key is
// (ProxyWallet, TransactionHash, Asset).
type ActivityRecord struct {
	ProxyWallet     string       `json:"proxyWallet"`
	Timestamp       int64        `json:"timestamp"`
	ConditionID     string       `json:"conditionId"`
	Type            ActivityType `json:"type"`
	Size            float64      `json:"size"`
	UsdcSize        float64      `json:"usdcSize"`
	TransactionHash string       `json:"transactionHash"`
	Price           float64      `json:"price"`
	Asset           string       `json:"asset"`
	Side            Side         `json:"side"`
	OutcomeIndex    int          `json:"outcomeIndex"`

	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Icon      string `json:"icon"`
	EventSlug string `json:"eventSlug"`
	Outcome   string `json:"outcome"`

	Name                  string `json:"name"`
	Pseudonym             string `json:"pseudonym"`
	Bio                   string `json:"bio"`
	ProfileImage          string `json:"profileImage"`
	ProfileImageOptimized string `json:"profileImageOptimized"`
}

// NaturalKey returns the identity tuple used for deduplication.
func (a ActivityRecord) NaturalKey() string {
	return strings.ToLower(a.ProxyWallet) + "|" + strings.ToLower(a.TransactionHash) + "|" + a.Asset
}
