package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// Exchange domain name and version signed into every CTF Exchange order.
const (
	ExchangeDomainName    = "Polymarket CTF Exchange"
	ExchangeDomainVersion = "1"
)

var (
	authDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)
	exchangeDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)
	clobAuthTypeHash = ethcrypto.Keccak256(
		[]byte("ClobAuth(address address,string timestamp,uint256 nonce,string message)"),
	)
	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"),
	)
)

// clobAuthMessage is the fixed attestation signed when deriving API keys.
const clobAuthMessage = "This message attests that I control the given wallet"

// Signer holds one secp256k1 key and signs CLOB typed data for one chain.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64
	authDomain []byte
}

// NewSigner parses a hex private key (with or without 0x) for chainID.
func NewSigner(privateKeyHex string, chainID int64) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
		authDomain: domainSeparator(authDomainTypeHash, "ClobAuthDomain", "1", chainID, nil),
	}, nil
}

// Address returns the address derived from the private key.
func (s *Signer) Address() common.Address { return s.address }

// ChainID returns the chain the signer is bound to.
func (s *Signer) ChainID() int64 { return s.chainID }

// SignAuthMessage signs the ClobAuth message used for L1 authentication.
func (s *Signer) SignAuthMessage(timestamp, nonce int64) (string, error) {
	structHash := ethcrypto.Keccak256(concatBytes(
		clobAuthTypeHash,
		common.LeftPadBytes(s.address.Bytes(), 32),
		ethcrypto.Keccak256([]byte(fmt.Sprintf("%d", timestamp))),
		word(big.NewInt(nonce)),
		ethcrypto.Keccak256([]byte(clobAuthMessage)),
	))
	sig, err := s.signDigest(typedDataHash(s.authDomain, structHash))
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// SignOrder fills o.Signature and o.Hash. The digest binds the order to
// o.Exchange and the signer's chain id; o.ChainID is set accordingly.
func (s *Signer) SignOrder(o *domain.SignedOrder) error {
	o.ChainID = s.chainID
	digest, err := OrderHash(*o)
	if err != nil {
		return err
	}
	sig, err := s.signDigest(digest)
	if err != nil {
		return err
	}
	o.Hash = "0x" + hex.EncodeToString(digest)
	o.Signature = "0x" + hex.EncodeToString(sig)
	return nil
}

// OrderHash returns the EIP-712 digest of o under the exchange domain named
// by o.Exchange and o.ChainID.
func OrderHash(o domain.SignedOrder) ([]byte, error) {
	if !common.IsHexAddress(o.Exchange) {
		return nil, fmt.Errorf("crypto/signer: invalid exchange address %q", o.Exchange)
	}
	for name, addr := range map[string]string{"maker": o.Maker, "signer": o.Signer, "taker": o.Taker} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("crypto/signer: invalid %s address %q", name, addr)
		}
	}
	tokenID, ok := new(big.Int).SetString(o.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("crypto/signer: invalid token id %q", o.TokenID)
	}
	if o.Salt == nil || o.MakerAmount == nil || o.TakerAmount == nil {
		return nil, fmt.Errorf("crypto/signer: salt and amounts are required")
	}

	exchange := common.HexToAddress(o.Exchange)
	structHash := ethcrypto.Keccak256(concatBytes(
		orderTypeHash,
		word(o.Salt),
		common.LeftPadBytes(common.HexToAddress(o.Maker).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Signer).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Taker).Bytes(), 32),
		word(tokenID),
		word(o.MakerAmount),
		word(o.TakerAmount),
		word(new(big.Int).SetUint64(o.Expiration)),
		word(new(big.Int).SetUint64(o.Nonce)),
		word(new(big.Int).SetUint64(o.FeeRateBps)),
		word(big.NewInt(int64(o.Side))),
		word(big.NewInt(int64(o.SignatureType))),
	))
	sep := domainSeparator(exchangeDomainTypeHash, ExchangeDomainName, ExchangeDomainVersion, o.ChainID, &exchange)
	return typedDataHash(sep, structHash), nil
}

// VerifyOrder checks that o.Signature recovers to o.Signer over the order's
// digest and that o.Hash matches that digest.
func VerifyOrder(o domain.SignedOrder) error {
	digest, err := OrderHash(o)
	if err != nil {
		return err
	}
	if o.Hash != "" && !strings.EqualFold(o.Hash, "0x"+hex.EncodeToString(digest)) {
		return fmt.Errorf("crypto/signer: order hash mismatch")
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(o.Signature, "0x"))
	if err != nil || len(sig) != 65 {
		return fmt.Errorf("crypto/signer: malformed signature")
	}
	sig = bytes.Clone(sig)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return fmt.Errorf("crypto/signer: recover: %w", err)
	}
	if got := ethcrypto.PubkeyToAddress(*pub); got != common.HexToAddress(o.Signer) {
		return fmt.Errorf("crypto/signer: signature recovers to %s, want %s", got.Hex(), o.Signer)
	}
	return nil
}

func domainSeparator(typeHash []byte, name, version string, chainID int64, verifyingContract *common.Address) []byte {
	parts := [][]byte{
		typeHash,
		ethcrypto.Keccak256([]byte(name)),
		ethcrypto.Keccak256([]byte(version)),
		word(big.NewInt(chainID)),
	}
	if verifyingContract != nil {
		parts = append(parts, common.LeftPadBytes(verifyingContract.Bytes(), 32))
	}
	return ethcrypto.Keccak256(concatBytes(parts...))
}

// typedDataHash is keccak256("\x19\x01" || domainSeparator || structHash).
func typedDataHash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(concatBytes([]byte{0x19, 0x01}, domainSep, structHash))
}

// signDigest returns r || s || v with v in {27, 28}.
func (s *Signer) signDigest(digest []byte) ([]byte, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: sign: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// word left-pads n to a 32-byte ABI word.
func word(n *big.Int) []byte {
	return common.LeftPadBytes(n.Bytes(), 32)
}

func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
