package polymarket

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUSDC  = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	testOwner = "0x00000000000000000000000000000000000000aa"
)

type fakeCaller struct {
	out []byte
	err error
	msg ethereum.CallMsg
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.msg = msg
	return f.out, f.err
}

func TestChainBalance_Collateral(t *testing.T) {
	caller := &fakeCaller{out: common.LeftPadBytes(big.NewInt(1_234_567).Bytes(), 32)}
	cb, err := NewChainBalance(caller, testUSDC, testOwner, 0)
	require.NoError(t, err)

	bal, err := cb.Collateral(context.Background())
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("1.234567")), bal.String())

	require.NotNil(t, caller.msg.To)
	assert.Equal(t, common.HexToAddress(testUSDC), *caller.msg.To)
	assert.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, caller.msg.Data[:4])
	assert.Equal(t, common.HexToAddress(testOwner).Bytes(), caller.msg.Data[16:36])
}

func TestChainBalance_Errors(t *testing.T) {
	cb, err := NewChainBalance(&fakeCaller{err: errors.New("rpc down")}, testUSDC, testOwner, 0)
	require.NoError(t, err)
	_, err = cb.Collateral(context.Background())
	assert.ErrorContains(t, err, "rpc down")

	cb, err = NewChainBalance(&fakeCaller{out: []byte{1}}, testUSDC, testOwner, 0)
	require.NoError(t, err)
	_, err = cb.Collateral(context.Background())
	assert.Error(t, err)

	_, err = NewChainBalance(&fakeCaller{}, "usdc", testOwner, 0)
	assert.Error(t, err)
}
