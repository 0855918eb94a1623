package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/normalize"
)

func traderResult(wallet string) normalize.Result[domain.Trader] {
	return normalize.Result[domain.Trader]{Value: domain.Trader{ProxyWallet: wallet, Amount: 1}}
}

func newTraderService() (*TraderService, *fakeLeaderboard) {
	board := &fakeLeaderboard{traders: []normalize.Result[domain.Trader]{
		traderResult("0xAAA"),
		traderResult("0xbbb"),
		badResult[domain.Trader](),
		traderResult("0xccc"),
		traderResult("0xddd"),
	}}
	stats := &fakeTraderData{values: map[string]float64{
		"0xAAA": 250000,
		"0xbbb": 50,
		"0xccc": 100000,
	}}
	return NewTraderService(board, stats, discardLogger()), board
}

func TestTraderService_TopActiveTraders(t *testing.T) {
	svc, board := newTraderService()
	active, err := svc.TopActiveTraders(context.Background(), 30, DefaultValueThreshold)
	require.NoError(t, err)
	assert.Equal(t, 30, board.limit)

	require.Len(t, active, 1)
	assert.Equal(t, "0xAAA", active[0].ProxyWallet)
	assert.Equal(t, 250000.0, active[0].CurrentValue)
	assert.Equal(t, 7, active[0].Trades)

	active, err = svc.TopActiveTraders(context.Background(), 30, 10)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestTraderService_ValidateTarget(t *testing.T) {
	svc, _ := newTraderService()
	assert.NoError(t, svc.ValidateTarget(context.Background(), strings.ToLower("0xAAA"), 30, DefaultValueThreshold))

	err := svc.ValidateTarget(context.Background(), "0xbbb", 30, DefaultValueThreshold)
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestTraderService_LeaderboardFailure(t *testing.T) {
	svc, board := newTraderService()
	board.err = &domain.TransientFetchError{Source: "lb-api/profit", StatusCode: 503}
	_, err := svc.TopActiveTraders(context.Background(), 30, 0)
	var tfe *domain.TransientFetchError
	assert.ErrorAs(t, err, &tfe)
}
