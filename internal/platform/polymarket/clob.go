package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/crypto"
	"github.com/alanyoungcy/polycopy/internal/domain"
)

// ClobClient talks to the Polymarket CLOB: order submission, collateral
// balance and API-key derivation.
type ClobClient struct {
	req           *requester
	signer        *crypto.Signer
	signatureType domain.SignatureType
	now           func() time.Time

	mu    sync.RWMutex
	creds crypto.APICreds
}

// NewClobClient creates a CLOB client. creds may be empty; DeriveAPIKey
// fills them in.
func NewClobClient(cfg HTTPConfig, signer *crypto.Signer, creds crypto.APICreds, sigType domain.SignatureType) *ClobClient {
	return &ClobClient{
		req:           newRequester("clob", cfg),
		signer:        signer,
		signatureType: sigType,
		now:           time.Now,
		creds:         creds,
	}
}

// Creds returns the L2 credentials in use.
func (c *ClobClient) Creds() crypto.APICreds {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// DeriveAPIKey obtains the wallet's L2 credentials with an L1-signed request
// and keeps them for later calls.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) (crypto.APICreds, error) {
	sign := func(h http.Header, _ string) error {
		return c.signer.L1Headers(h, c.now(), 0)
	}
	body, _, err := c.req.do(ctx, http.MethodGet, "/auth/derive-api-key", nil, nil, sign)
	if err != nil {
		return crypto.APICreds{}, fmt.Errorf("polymarket/clob: derive api key: %w", err)
	}
	var creds crypto.APICreds
	if err := json.Unmarshal(body, &creds); err != nil {
		return crypto.APICreds{}, fmt.Errorf("polymarket/clob: decode api key: %w", err)
	}
	if creds.Key == "" || creds.Secret == "" {
		return crypto.APICreds{}, fmt.Errorf("polymarket/clob: derive api key: %w", domain.ErrUnauthorized)
	}

	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return creds, nil
}

func (c *ClobClient) l2(method, path string) func(http.Header, string) error {
	return func(h http.Header, body string) error {
		creds := c.Creds()
		if creds.Empty() {
			return fmt.Errorf("no api credentials: %w", domain.ErrUnauthorized)
		}
		creds.L2Headers(h, c.signer.Address().Hex(), method, path, body, c.now().Unix())
		return nil
	}
}

// Collateral returns the spendable USDC balance reported by the CLOB.
func (c *ClobClient) Collateral(ctx context.Context) (decimal.Decimal, error) {
	const path = "/balance-allowance"
	q := url.Values{}
	q.Set("asset_type", "COLLATERAL")
	q.Set("signature_type", strconv.Itoa(int(c.signatureType)))

	body, _, err := c.req.do(ctx, http.MethodGet, path, q, nil, c.l2(http.MethodGet, path))
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: balance: %w", err)
	}
	var ba balanceAllowance
	if err := json.Unmarshal(body, &ba); err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: decode balance: %w", err)
	}
	units, ok := new(big.Int).SetString(ba.Balance, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("polymarket/clob: balance %q is not an integer", ba.Balance)
	}
	return decimal.NewFromBigInt(units, -6), nil
}

// PostOrder submits a signed order. An exchange rejection is reported as an
// unsuccessful OrderResult with a nil error; transport faults and any other
// non-2xx status are errors.
func (c *ClobClient) PostOrder(ctx context.Context, o domain.SignedOrder, orderType domain.OrderType) (domain.OrderResult, error) {
	const path = "/order"
	if orderType == "" {
		orderType = domain.OrderTypeGTC
	}
	payload, err := json.Marshal(postOrderRequest{
		Order:     toAPIOrder(o),
		Owner:     c.Creds().Key,
		OrderType: string(orderType),
	})
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: encode order: %w", err)
	}

	body, status, err := c.req.do(ctx, http.MethodPost, path, nil, payload, c.l2(http.MethodPost, path))
	if err != nil {
		var tfe *domain.TransientFetchError
		if errors.As(err, &tfe) && status == http.StatusBadRequest {
			var res apiOrderResult
			if json.Unmarshal(body, &res) == nil && (res.ErrorMsg != "" || res.Error != "") {
				return res.toDomain(), nil
			}
		}
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: post order: %w", err)
	}

	var res apiOrderResult
	if err := json.Unmarshal(body, &res); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}
	return res.toDomain(), nil
}
