package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// apiOrder is the wire form of a signed order in POST /order.
type apiOrder struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type postOrderRequest struct {
	Order     apiOrder `json:"order"`
	Owner     string   `json:"owner"`
	OrderType string   `json:"orderType"`
}

func toAPIOrder(o domain.SignedOrder) apiOrder {
	return apiOrder{
		Salt:          json.Number(o.Salt.String()),
		Maker:         o.Maker,
		Signer:        o.Signer,
		Taker:         o.Taker,
		TokenID:       o.TokenID,
		MakerAmount:   o.MakerAmount.String(),
		TakerAmount:   o.TakerAmount.String(),
		Expiration:    strconv.FormatUint(o.Expiration, 10),
		Nonce:         strconv.FormatUint(o.Nonce, 10),
		FeeRateBps:    strconv.FormatUint(o.FeeRateBps, 10),
		Side:          o.Side.String(),
		SignatureType: int(o.SignatureType),
		Signature:     o.Signature,
	}
}

// apiOrderResult is the acknowledgement returned by POST /order. Rejections
// arrive either as success=false with errorMsg or as a 4xx with error.
type apiOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg"`
	Error       string `json:"error"`
	OrderID     string `json:"orderID"`
	Status      string `json:"status"`
	ShouldRetry bool   `json:"shouldRetry"`
}

func (r apiOrderResult) toDomain() domain.OrderResult {
	msg := r.ErrorMsg
	if msg == "" {
		msg = r.Error
	}
	return domain.OrderResult{
		Success:     r.Success && msg == "",
		OrderID:     r.OrderID,
		Status:      strings.ToLower(r.Status),
		Message:     msg,
		ShouldRetry: r.ShouldRetry,
	}
}

// balanceAllowance is the response of GET /balance-allowance. Balance is in
// collateral base units.
type balanceAllowance struct {
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}

// gammaMarket is the subset of a Gamma market needed to route orders.
type gammaMarket struct {
	ConditionID string `json:"conditionId"`
	NegRisk     bool   `json:"negRisk"`
	Closed      bool   `json:"closed"`
}
