// Package sizing bounds replay candidates by the replicator's collateral.
package sizing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// BudgetMode controls how collateral is shared between candidates of one pass.
type BudgetMode string

const (
	// BudgetPerOrder bounds every candidate by the full available collateral.
	BudgetPerOrder BudgetMode = "per_order"
	// BudgetShared spends a single budget down across the pass.
	BudgetShared BudgetMode = "shared"
)

// ParseBudgetMode validates a configured budget mode; "" means per_order.
func ParseBudgetMode(s string) (BudgetMode, error) {
	switch BudgetMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", BudgetPerOrder:
		return BudgetPerOrder, nil
	case BudgetShared:
		return BudgetShared, nil
	default:
		return "", fmt.Errorf("sizing: unknown budget mode %q", s)
	}
}

// CheckCollateral fails with InsufficientFundsError when nothing can be spent.
// It runs once per pass, before any candidate is sized.
func CheckCollateral(wallet string, available decimal.Decimal) error {
	if !available.IsPositive() {
		return &domain.InsufficientFundsError{Wallet: wallet, Available: available}
	}
	return nil
}

// Size returns min(candidate size, available), floored at zero.
func Size(c domain.ReplayCandidate, available decimal.Decimal) decimal.Decimal {
	size := decimal.Min(c.Size, available)
	if size.IsNegative() {
		return decimal.Zero
	}
	return size
}

// Plan sizes candidates in order. Candidates that size to zero are dropped.
func Plan(candidates []domain.ReplayCandidate, available decimal.Decimal, mode BudgetMode) []domain.SizedCandidate {
	budget := available
	out := make([]domain.SizedCandidate, 0, len(candidates))
	for _, c := range candidates {
		size := Size(c, budget)
		if !size.IsPositive() {
			continue
		}
		out = append(out, domain.SizedCandidate{Candidate: c, Size: size})
		if mode == BudgetShared {
			budget = budget.Sub(size)
		}
	}
	return out
}
