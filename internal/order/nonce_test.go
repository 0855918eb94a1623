package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

type memRegistry struct {
	taken map[string]bool
	err   error
}

func (m *memRegistry) Reserve(_ context.Context, maker, asset string, nonce uint64, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	k := fmt.Sprintf("%s|%s|%d", maker, asset, nonce)
	if m.taken[k] {
		return false, nil
	}
	m.taken[k] = true
	return true, nil
}

func TestNonceSequencer_SkipsReservedNonces(t *testing.T) {
	reg := &memRegistry{taken: map[string]bool{
		"0xm|a|100": true,
		"0xm|a|101": true,
	}}
	seq := NewNonceSequencer(reg, time.Minute)

	n, err := seq.Next(context.Background(), "0xm", "a", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(102), n)

	n, err = seq.Next(context.Background(), "0xm", "a", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(103), n)
}

func TestNonceSequencer_MakerIsCaseInsensitive(t *testing.T) {
	seq := NewNonceSequencer(nil, 0)
	a, err := seq.Next(context.Background(), "0xABC", "a", 5)
	require.NoError(t, err)
	b, err := seq.Next(context.Background(), "0xabc", "a", 5)
	require.NoError(t, err)
	assert.Equal(t, a+1, b)
}

func TestNonceSequencer_Exhausted(t *testing.T) {
	reg := &memRegistry{taken: map[string]bool{}}
	for i := range uint64(maxNonceAttempts) {
		reg.taken[fmt.Sprintf("0xm|a|%d", 1+i)] = true
	}
	seq := NewNonceSequencer(reg, time.Minute)

	_, err := seq.Next(context.Background(), "0xm", "a", 1)
	assert.ErrorIs(t, err, domain.ErrNonceExhausted)
}

func TestNonceSequencer_RegistryError(t *testing.T) {
	seq := NewNonceSequencer(&memRegistry{err: errors.New("redis down")}, time.Minute)
	_, err := seq.Next(context.Background(), "0xm", "a", 1)
	assert.ErrorContains(t, err, "redis down")
}
