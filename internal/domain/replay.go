package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Epoch is the relative window that bounds how far back replay looks.
type Epoch string

const (
	EpochHour  Epoch = "h"
	EpochDay   Epoch = "d"
	EpochMonth Epoch = "m"
	EpochYear  Epoch = "y"
)

// ParseEpoch accepts the short form (h, d, m, y) or the long form
// (hour, day, month, year), case-insensitively.
func ParseEpoch(s string) (Epoch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "hour":
		return EpochHour, nil
	case "d", "day":
		return EpochDay, nil
	case "m", "month":
		return EpochMonth, nil
	case "y", "year":
		return EpochYear, nil
	default:
		return "", fmt.Errorf("invalid epoch %q (valid: h, d, m, y)", s)
	}
}

func (e Epoch) String() string {
	switch e {
	case EpochHour:
		return "hour"
	case EpochDay:
		return "day"
	case EpochMonth:
		return "month"
	case EpochYear:
		return "year"
	default:
		return string(e)
	}
}

// ReplayCandidate is a historical BUY selected as a template for a new order.
// It is derived from an ActivityRecord and never persisted.
type ReplayCandidate struct {
	ConditionID string          `json:"conditionId"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Size        decimal.Decimal `json:"size"`
	Asset       string          `json:"asset"`

	SourceWallet string `json:"sourceWallet"`
	SourceTxHash string `json:"sourceTxHash"`
	Timestamp    int64  `json:"timestamp"`
	Title        string `json:"title,omitempty"`
}

// CandidateFromActivity extracts the replay fields from an activity record.
func CandidateFromActivity(a ActivityRecord) ReplayCandidate {
	return ReplayCandidate{
		ConditionID:  a.ConditionID,
		Side:         a.Side,
		Price:        decimal.NewFromFloat(a.Price),
		Size:         decimal.NewFromFloat(a.Size),
		Asset:        a.Asset,
		SourceWallet: a.ProxyWallet,
		SourceTxHash: a.TransactionHash,
		Timestamp:    a.Timestamp,
		Title:        a.Title,
	}
}

// SizedCandidate pairs a candidate with the size that will actually be
// ordered after collateral bounding.
type SizedCandidate struct {
	Candidate ReplayCandidate `json:"candidate"`
	Size      decimal.Decimal `json:"size"`
}
