package polymarket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/crypto"
	"github.com/alanyoungcy/polycopy/internal/domain"
)

const testKey = "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"

func testCreds() crypto.APICreds {
	return crypto.APICreds{
		Key:        "api-key",
		Secret:     base64.URLEncoding.EncodeToString([]byte("secret")),
		Passphrase: "phrase",
	}
}

func newClob(t *testing.T, url string, creds crypto.APICreds) *ClobClient {
	t.Helper()
	signer, err := crypto.NewSigner(testKey, 137)
	require.NoError(t, err)
	c := NewClobClient(HTTPConfig{BaseURL: url}, signer, creds, domain.SignatureEOA)
	c.now = func() time.Time { return time.Unix(1760700000, 0) }
	return c
}

func signedOrder() domain.SignedOrder {
	return domain.SignedOrder{
		OrderRequest: domain.OrderRequest{
			TokenID:     "123",
			Maker:       "0x0000000000000000000000000000000000000001",
			Side:        domain.OrderSideBuy,
			MakerAmount: big.NewInt(60_000_000),
			TakerAmount: big.NewInt(0),
			FeeRateBps:  1,
			Nonce:       1760700000,
		},
		Salt:      big.NewInt(987654321),
		Signer:    "0x0000000000000000000000000000000000000001",
		Taker:     "0x0000000000000000000000000000000000000000",
		Signature: "0xsig",
	}
}

func TestClobClient_PostOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/order", r.URL.Path)
		assert.Equal(t, "api-key", r.Header.Get("POLY_API_KEY"))
		assert.Equal(t, "1760700000", r.Header.Get("POLY_TIMESTAMP"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(body, &req))
		assert.JSONEq(t, `"api-key"`, string(req["owner"]))
		assert.JSONEq(t, `"GTC"`, string(req["orderType"]))
		assert.JSONEq(t, `{
			"salt": 987654321,
			"maker": "0x0000000000000000000000000000000000000001",
			"signer": "0x0000000000000000000000000000000000000001",
			"taker": "0x0000000000000000000000000000000000000000",
			"tokenId": "123",
			"makerAmount": "60000000",
			"takerAmount": "0",
			"expiration": "0",
			"nonce": "1760700000",
			"feeRateBps": "1",
			"side": "BUY",
			"signatureType": 0,
			"signature": "0xsig"
		}`, string(req["order"]))

		_, _ = w.Write([]byte(`{"success":true,"errorMsg":"","orderID":"0xabc","status":"LIVE"}`))
	}))
	defer srv.Close()

	res, err := newClob(t, srv.URL, testCreds()).PostOrder(context.Background(), signedOrder(), "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "0xabc", res.OrderID)
	assert.Equal(t, "live", res.Status)
}

func TestClobClient_PostOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"not enough balance / allowance"}`))
	}))
	defer srv.Close()

	res, err := newClob(t, srv.URL, testCreds()).PostOrder(context.Background(), signedOrder(), domain.OrderTypeFOK)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "not enough balance / allowance", res.Message)
}

func TestClobClient_PostOrderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClob(t, srv.URL, testCreds()).PostOrder(context.Background(), signedOrder(), "")
	var tfe *domain.TransientFetchError
	assert.True(t, errors.As(err, &tfe))
}

func TestClobClient_PostOrderWithoutCreds(t *testing.T) {
	_, err := newClob(t, "http://127.0.0.1:0", crypto.APICreds{}).PostOrder(context.Background(), signedOrder(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestClobClient_Collateral(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/balance-allowance", r.URL.Path)
		assert.Equal(t, "COLLATERAL", r.URL.Query().Get("asset_type"))
		assert.Equal(t, "0", r.URL.Query().Get("signature_type"))
		_, _ = w.Write([]byte(`{"balance":"60250000","allowance":"0"}`))
	}))
	defer srv.Close()

	bal, err := newClob(t, srv.URL, testCreds()).Collateral(context.Background())
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("60.25")), bal.String())
}

func TestClobClient_DeriveAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/derive-api-key", r.URL.Path)
		assert.Equal(t, "0", r.Header.Get("POLY_NONCE"))
		assert.NotEmpty(t, r.Header.Get("POLY_SIGNATURE"))
		assert.Empty(t, r.Header.Get("POLY_API_KEY"))
		_, _ = w.Write([]byte(`{"apiKey":"k","secret":"c2VjcmV0","passphrase":"p"}`))
	}))
	defer srv.Close()

	c := newClob(t, srv.URL, crypto.APICreds{})
	creds, err := c.DeriveAPIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "k", creds.Key)
	assert.Equal(t, creds, c.Creds())
}
