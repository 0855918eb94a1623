// Package order builds and signs CTF Exchange orders from sized replay
// candidates.
package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polycopy/internal/crypto"
	"github.com/alanyoungcy/polycopy/internal/domain"
)

// collateralDecimals is the USDC base-unit exponent.
const collateralDecimals = 6

// Config selects the exchange domain and maker identity for built orders.
type Config struct {
	Exchange        string
	NegRiskExchange string
	FeeRateBps      uint64
	SignatureType   domain.SignatureType
	// Funder is the maker for proxy and safe wallets. Empty means the
	// signer's own address (EOA mode).
	Funder string
}

// Builder turns sized candidates into signed orders. Building and signing
// happen in one call; a returned order is always fully signed and verified.
type Builder struct {
	signer *crypto.Signer
	cfg    Config
	nonces *NonceSequencer
	now    func() time.Time
	salt   func() (*big.Int, error)
}

// NewBuilder creates a Builder. A nil nonce sequencer gets an in-process one.
func NewBuilder(signer *crypto.Signer, cfg Config, nonces *NonceSequencer, now func() time.Time) (*Builder, error) {
	if !common.IsHexAddress(cfg.Exchange) {
		return nil, fmt.Errorf("order: invalid exchange address %q", cfg.Exchange)
	}
	if cfg.NegRiskExchange != "" && !common.IsHexAddress(cfg.NegRiskExchange) {
		return nil, fmt.Errorf("order: invalid neg-risk exchange address %q", cfg.NegRiskExchange)
	}
	if cfg.Funder != "" && !common.IsHexAddress(cfg.Funder) {
		return nil, fmt.Errorf("order: invalid funder address %q", cfg.Funder)
	}
	if nonces == nil {
		nonces = NewNonceSequencer(nil, 0)
	}
	if now == nil {
		now = time.Now
	}
	return &Builder{signer: signer, cfg: cfg, nonces: nonces, now: now, salt: randomSalt}, nil
}

// Maker returns the address orders are placed for.
func (b *Builder) Maker() string {
	if b.cfg.Funder != "" {
		return common.HexToAddress(b.cfg.Funder).Hex()
	}
	return b.signer.Address().Hex()
}

// Options adjust a single Build call.
type Options struct {
	Nonce   uint64 // 0 means wall-clock seconds
	NegRisk bool
}

// Build creates the order for candidate c sized to size. Failures to sign or
// self-verify are returned as *domain.SigningError.
func (b *Builder) Build(ctx context.Context, c domain.ReplayCandidate, size decimal.Decimal, opts Options) (domain.SignedOrder, error) {
	if !size.IsPositive() {
		return domain.SignedOrder{}, fmt.Errorf("order: size %s: %w", size, domain.ErrInvalidOrder)
	}
	if _, ok := new(big.Int).SetString(c.Asset, 10); !ok {
		return domain.SignedOrder{}, fmt.Errorf("order: token id %q: %w", c.Asset, domain.ErrInvalidOrder)
	}

	amount := BaseUnits(size)
	if amount.Sign() == 0 {
		return domain.SignedOrder{}, fmt.Errorf("order: size %s below one base unit: %w", size, domain.ErrInvalidOrder)
	}

	side := domain.OrderSideFor(c.Side)
	makerAmount, takerAmount := amount, big.NewInt(0)
	if side == domain.OrderSideSell {
		makerAmount, takerAmount = takerAmount, amount
	}

	want := opts.Nonce
	if want == 0 {
		want = uint64(b.now().Unix())
	}
	maker := b.Maker()
	nonce, err := b.nonces.Next(ctx, maker, c.Asset, want)
	if err != nil {
		return domain.SignedOrder{}, err
	}

	salt, err := b.salt()
	if err != nil {
		return domain.SignedOrder{}, &domain.SigningError{TokenID: c.Asset, Err: err}
	}

	exchange := b.cfg.Exchange
	if opts.NegRisk && b.cfg.NegRiskExchange != "" {
		exchange = b.cfg.NegRiskExchange
	}

	o := domain.SignedOrder{
		OrderRequest: domain.OrderRequest{
			TokenID:     c.Asset,
			Maker:       maker,
			Side:        side,
			MakerAmount: makerAmount,
			TakerAmount: takerAmount,
			FeeRateBps:  b.cfg.FeeRateBps,
			Nonce:       nonce,
		},
		Salt:          salt,
		Signer:        b.signer.Address().Hex(),
		Taker:         common.Address{}.Hex(),
		SignatureType: b.cfg.SignatureType,
		Exchange:      common.HexToAddress(exchange).Hex(),
	}
	if err := b.signer.SignOrder(&o); err != nil {
		return domain.SignedOrder{}, &domain.SigningError{TokenID: c.Asset, Err: err}
	}
	if err := crypto.VerifyOrder(o); err != nil {
		return domain.SignedOrder{}, &domain.SigningError{TokenID: c.Asset, Err: err}
	}
	return o, nil
}

// BaseUnits converts a collateral amount to 6-decimal integer units,
// truncating anything finer.
func BaseUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(collateralDecimals).Truncate(0).BigInt()
}

// FromBaseUnits is the inverse of BaseUnits.
func FromBaseUnits(units *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(units, -collateralDecimals)
}

func randomSalt() (*big.Int, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("order: generate salt: %w", err)
	}
	// 56 bits: the CLOB API carries the salt as a JSON number.
	return new(big.Int).SetBytes(buf[:7]), nil
}
