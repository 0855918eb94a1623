package crypto

import (
	"math/big"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// Well-known hardhat account #0; never funded on Polygon.
const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	exchange    = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	negRisk     = "0xC5d563A36AE78145C45a50134d48A1215220f80a"
	zeroAddress = "0x0000000000000000000000000000000000000000"
)

func testOrder(t *testing.T, s *Signer) domain.SignedOrder {
	t.Helper()
	return domain.SignedOrder{
		OrderRequest: domain.OrderRequest{
			TokenID:     "71321045679252212594626385532706912750332728571942532289631379312455583992563",
			Maker:       s.Address().Hex(),
			Side:        domain.OrderSideBuy,
			MakerAmount: big.NewInt(60_000_000),
			TakerAmount: big.NewInt(0),
			FeeRateBps:  1,
			Nonce:       1760700000,
		},
		Salt:     big.NewInt(123456789),
		Signer:   s.Address().Hex(),
		Taker:    zeroAddress,
		Exchange: exchange,
	}
}

func TestNewSigner(t *testing.T) {
	s, err := NewSigner("0x"+testKey, 137)
	require.NoError(t, err)
	assert.Equal(t, testAddress, s.Address().Hex())
	assert.Equal(t, int64(137), s.ChainID())

	_, err = NewSigner("not-hex", 137)
	assert.Error(t, err)
}

func TestSignOrder_Verifies(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)

	o := testOrder(t, s)
	require.NoError(t, s.SignOrder(&o))
	assert.Equal(t, int64(137), o.ChainID)
	assert.True(t, strings.HasPrefix(o.Signature, "0x"))
	assert.Len(t, o.Signature, 2+130)
	assert.Len(t, o.Hash, 2+64)

	require.NoError(t, VerifyOrder(o))
}

func TestVerifyOrder_DetectsTampering(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)
	o := testOrder(t, s)
	require.NoError(t, s.SignOrder(&o))

	amount := o
	amount.MakerAmount = big.NewInt(61_000_000)
	assert.Error(t, VerifyOrder(amount))

	otherExchange := o
	otherExchange.Exchange = negRisk
	assert.Error(t, VerifyOrder(otherExchange), "signature is bound to the exchange contract")

	otherChain := o
	otherChain.ChainID = 80002
	assert.Error(t, VerifyOrder(otherChain), "signature is bound to the chain id")

	otherSigner := o
	otherSigner.Signer = zeroAddress
	otherSigner.Hash = ""
	assert.Error(t, VerifyOrder(otherSigner))
}

func TestOrderHash_DependsOnDomain(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)
	o := testOrder(t, s)
	o.ChainID = 137

	a, err := OrderHash(o)
	require.NoError(t, err)
	o.Exchange = negRisk
	b, err := OrderHash(o)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOrderHash_RejectsBadFields(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)

	bad := testOrder(t, s)
	bad.TokenID = "abc"
	_, err = OrderHash(bad)
	assert.Error(t, err)

	bad = testOrder(t, s)
	bad.Exchange = "nope"
	_, err = OrderHash(bad)
	assert.Error(t, err)

	bad = testOrder(t, s)
	bad.Salt = nil
	_, err = OrderHash(bad)
	assert.Error(t, err)
}

func TestL1Headers(t *testing.T) {
	s, err := NewSigner(testKey, 137)
	require.NoError(t, err)

	h := http.Header{}
	require.NoError(t, s.L1Headers(h, time.Unix(1760700000, 0), 0))
	assert.Equal(t, testAddress, h.Get("POLY_ADDRESS"))
	assert.Equal(t, "1760700000", h.Get("POLY_TIMESTAMP"))
	assert.Equal(t, "0", h.Get("POLY_NONCE"))
	assert.Len(t, h.Get("POLY_SIGNATURE"), 132)
}
