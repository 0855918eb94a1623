package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidOrder   = errors.New("invalid order parameters")
	ErrSigningFailed  = errors.New("signing failed")
	ErrLockHeld       = errors.New("lock already held")
	ErrLockLost       = errors.New("lock lost")
	ErrNonceExhausted = errors.New("no free nonce")
)

// TransientFetchError reports a gateway call that produced no usable data:
// the endpoint was unreachable or answered with a non-200 status.
type TransientFetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// NormalizationError reports a single malformed gateway record.
type NormalizationError struct {
	Kind   string
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("normalize %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("normalize %s: field %s: %s", e.Kind, e.Field, e.Reason)
}

// PersistenceError reports a single record the store refused to write.
type PersistenceError struct {
	Table string
	Key   string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Table, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InsufficientFundsError aborts a replay pass before any order is built.
type InsufficientFundsError struct {
	Wallet    string
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds at %s: available %s", e.Wallet, e.Available.String())
}

// SigningError is fatal for one candidate only.
type SigningError struct {
	TokenID string
	Err     error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign order for token %s: %v", e.TokenID, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrSigningFailed) match any SigningError.
func (e *SigningError) Is(target error) bool { return target == ErrSigningFailed }
