package domain

import (
	"math/big"
	"time"
)

// OrderSide is the on-chain encoding of a CLOB order side.
type OrderSide uint8

const (
	OrderSideBuy  OrderSide = 0
	OrderSideSell OrderSide = 1
)

// String returns the CLOB API representation of the side.
func (s OrderSide) String() string {
	if s == OrderSideSell {
		return "SELL"
	}
	return "BUY"
}

// OrderSideFor maps an activity side onto an order side.
func OrderSideFor(s Side) OrderSide {
	if s == SideSell {
		return OrderSideSell
	}
	return OrderSideBuy
}

// SignatureType identifies how the maker wallet authorises orders.
type SignatureType uint8

const (
	SignatureEOA        SignatureType = 0
	SignaturePolyProxy  SignatureType = 1
	SignatureGnosisSafe SignatureType = 2
)

// OrderType is the CLOB time-in-force.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC"
	OrderTypeGTD OrderType = "GTD"
	OrderTypeFOK OrderType = "FOK"
	OrderTypeFAK OrderType = "FAK"
)

// OrderRequest is an unsigned order. Amounts are collateral base units
// (6 decimals). For BUY the maker supplies MakerAmount and TakerAmount is
// zero; SELL is the inverse.
type OrderRequest struct {
	TokenID     string    `json:"tokenId"`
	Maker       string    `json:"maker"`
	Side        OrderSide `json:"side"`
	MakerAmount *big.Int  `json:"makerAmount"`
	TakerAmount *big.Int  `json:"takerAmount"`
	FeeRateBps  uint64    `json:"feeRateBps"`
	Nonce       uint64    `json:"nonce"`
	Expiration  uint64    `json:"expiration"`
}

// SignedOrder is an OrderRequest plus the remaining typed fields and an
// EIP-712 signature bound to the exchange contract and chain id. Hash is the
// EIP-712 digest and doubles as the order identity.
type SignedOrder struct {
	OrderRequest
	Salt          *big.Int      `json:"salt"`
	Signer        string        `json:"signer"`
	Taker         string        `json:"taker"`
	SignatureType SignatureType `json:"signatureType"`
	Signature     string        `json:"signature"`
	Hash          string        `json:"hash"`
	Exchange      string        `json:"exchange"`
	ChainID       int64         `json:"chainId"`
}

// OrderResult is the exchange acknowledgement for a submitted order.
type OrderResult struct {
	Success     bool   `json:"success"`
	OrderID     string `json:"orderId,omitempty"`
	Status      string `json:"status,omitempty"`
	Message     string `json:"message,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// OrderStatus is the lifecycle state recorded for a copy order.
type OrderStatus string

const (
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusDryRun    OrderStatus = "dry_run"
)

// OrderRecord is the outcome of one replicated order, written back to the
// record store.
type OrderRecord struct {
	ID           int64       `json:"id,omitempty"`
	PassID       string      `json:"passId"`
	SourceWallet string      `json:"sourceWallet"`
	SourceTxHash string      `json:"sourceTxHash"`
	Asset        string      `json:"asset"`
	ConditionID  string      `json:"conditionId"`
	OrderHash    string      `json:"orderHash"`
	Maker        string      `json:"maker"`
	Side         string      `json:"side"`
	MakerAmount  string      `json:"makerAmount"`
	TakerAmount  string      `json:"takerAmount"`
	Nonce        uint64      `json:"nonce"`
	Status       OrderStatus `json:"status"`
	ExchangeID   string      `json:"exchangeId,omitempty"`
	Message      string      `json:"message,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}
