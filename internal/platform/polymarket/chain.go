package polymarket

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// balanceOfSelector is the 4-byte selector of ERC-20 balanceOf(address).
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// ContractCaller is the subset of ethclient.Client used for balance reads.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainBalance reads the collateral token balance of a wallet over JSON-RPC.
type ChainBalance struct {
	caller   ContractCaller
	token    common.Address
	owner    common.Address
	decimals int32
	timeout  time.Duration
}

// DialChainBalance connects to rpcURL and reads token balances of owner.
func DialChainBalance(ctx context.Context, rpcURL, token, owner string, timeout time.Duration) (*ChainBalance, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("polymarket/chain: dial %s: %w", rpcURL, err)
	}
	cb, err := NewChainBalance(client, token, owner, timeout)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return cb, client, nil
}

// NewChainBalance creates a balance reader for a 6-decimal ERC-20 token.
func NewChainBalance(caller ContractCaller, token, owner string, timeout time.Duration) (*ChainBalance, error) {
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("polymarket/chain: invalid token address %q", token)
	}
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("polymarket/chain: invalid owner address %q", owner)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChainBalance{
		caller:   caller,
		token:    common.HexToAddress(token),
		owner:    common.HexToAddress(owner),
		decimals: 6,
		timeout:  timeout,
	}, nil
}

// Collateral returns balanceOf(owner) scaled down by the token decimals.
func (c *ChainBalance) Collateral(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(c.owner.Bytes(), 32)...)
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/chain: balanceOf: %w", err)
	}
	if len(out) != 32 {
		return decimal.Zero, fmt.Errorf("polymarket/chain: balanceOf returned %d bytes", len(out))
	}
	return decimal.NewFromBigInt(new(big.Int).SetBytes(out), -c.decimals), nil
}
