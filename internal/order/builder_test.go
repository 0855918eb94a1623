package order

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/crypto"
	"github.com/alanyoungcy/polycopy/internal/domain"
)

const (
	testKey  = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	exchange = "0x4bfb41d5b3570defd03c39a9a4d8de6bd8b8982e"
	negRisk  = "0xC5d563A36AE78145C45a50134d48A1215220f80a"
	funder   = "0x1111111111111111111111111111111111111111"
	tokenID  = "21742633143463906290569050155826241533067272736897614950488156847949938836455"
)

var fixedNow = time.Unix(1760700000, 0)

func newBuilder(t *testing.T, cfg Config, nonces *NonceSequencer) *Builder {
	t.Helper()
	signer, err := crypto.NewSigner(testKey, 137)
	require.NoError(t, err)
	if cfg.Exchange == "" {
		cfg.Exchange = exchange
	}
	b, err := NewBuilder(signer, cfg, nonces, func() time.Time { return fixedNow })
	require.NoError(t, err)
	return b
}

func candidate(side domain.Side) domain.ReplayCandidate {
	return domain.ReplayCandidate{
		ConditionID: "0xcond",
		Side:        side,
		Price:       decimal.RequireFromString("0.42"),
		Size:        decimal.NewFromInt(80),
		Asset:       tokenID,
	}
}

func TestBuild_BuySplitsAmounts(t *testing.T) {
	b := newBuilder(t, Config{FeeRateBps: 1}, nil)

	o, err := b.Build(context.Background(), candidate(domain.SideBuy), decimal.NewFromInt(60), Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderSideBuy, o.Side)
	assert.Equal(t, big.NewInt(60_000_000), o.MakerAmount)
	assert.Equal(t, int64(0), o.TakerAmount.Int64())
	assert.Equal(t, uint64(fixedNow.Unix()), o.Nonce)
	assert.Equal(t, uint64(0), o.Expiration)
	assert.Equal(t, uint64(1), o.FeeRateBps)
	assert.Equal(t, o.Signer, o.Maker, "EOA mode signs for itself")
	assert.Equal(t, int64(137), o.ChainID)
	require.NoError(t, crypto.VerifyOrder(o))
}

func TestBuild_SellIsInverse(t *testing.T) {
	b := newBuilder(t, Config{}, nil)

	o, err := b.Build(context.Background(), candidate(domain.SideSell), decimal.RequireFromString("12.3456789"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSideSell, o.Side)
	assert.Equal(t, int64(0), o.MakerAmount.Int64())
	assert.Equal(t, int64(12_345_678), o.TakerAmount.Int64())
}

func TestBuild_NonceUniquePerMakerAsset(t *testing.T) {
	b := newBuilder(t, Config{}, nil)
	ctx := context.Background()

	first, err := b.Build(ctx, candidate(domain.SideBuy), decimal.NewFromInt(1), Options{})
	require.NoError(t, err)
	second, err := b.Build(ctx, candidate(domain.SideBuy), decimal.NewFromInt(1), Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Nonce+1, second.Nonce)
	assert.NotEqual(t, first.Hash, second.Hash)

	other := candidate(domain.SideBuy)
	other.Asset = "42"
	third, err := b.Build(ctx, other, decimal.NewFromInt(1), Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Nonce, third.Nonce, "a different asset has its own sequence")

	explicit, err := b.Build(ctx, candidate(domain.SideBuy), decimal.NewFromInt(1), Options{Nonce: uint64(fixedNow.Unix()) + 100})
	require.NoError(t, err)
	assert.Equal(t, uint64(fixedNow.Unix())+100, explicit.Nonce)
}

func TestBuild_FunderAndNegRisk(t *testing.T) {
	b := newBuilder(t, Config{Funder: funder, NegRiskExchange: negRisk, SignatureType: domain.SignaturePolyProxy}, nil)

	o, err := b.Build(context.Background(), candidate(domain.SideBuy), decimal.NewFromInt(5), Options{NegRisk: true})
	require.NoError(t, err)
	assert.Equal(t, funder, o.Maker)
	assert.NotEqual(t, o.Maker, o.Signer)
	assert.True(t, strings.EqualFold(negRisk, o.Exchange))
	assert.Equal(t, domain.SignaturePolyProxy, o.SignatureType)
	require.NoError(t, crypto.VerifyOrder(o))
}

func TestBuild_InvalidInput(t *testing.T) {
	b := newBuilder(t, Config{}, nil)
	ctx := context.Background()

	_, err := b.Build(ctx, candidate(domain.SideBuy), decimal.Zero, Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, err = b.Build(ctx, candidate(domain.SideBuy), decimal.RequireFromString("0.0000001"), Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	bad := candidate(domain.SideBuy)
	bad.Asset = "not-a-token"
	_, err = b.Build(ctx, bad, decimal.NewFromInt(1), Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestBuild_SaltFailureIsSigningError(t *testing.T) {
	b := newBuilder(t, Config{}, nil)
	b.salt = func() (*big.Int, error) { return nil, errors.New("entropy exhausted") }

	_, err := b.Build(context.Background(), candidate(domain.SideBuy), decimal.NewFromInt(1), Options{})
	var serr *domain.SigningError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, tokenID, serr.TokenID)
	assert.ErrorIs(t, err, domain.ErrSigningFailed)
}

func TestNewBuilder_RejectsBadAddresses(t *testing.T) {
	signer, err := crypto.NewSigner(testKey, 137)
	require.NoError(t, err)

	_, err = NewBuilder(signer, Config{Exchange: "0x123"}, nil, nil)
	assert.Error(t, err)
	_, err = NewBuilder(signer, Config{Exchange: exchange, Funder: "bob"}, nil, nil)
	assert.Error(t, err)
}

func TestBaseUnits(t *testing.T) {
	assert.Equal(t, "60000000", BaseUnits(decimal.NewFromInt(60)).String())
	assert.Equal(t, "1", BaseUnits(decimal.RequireFromString("0.0000019")).String())
	assert.True(t, FromBaseUnits(big.NewInt(1_500_000)).Equal(decimal.RequireFromString("1.5")))
}
