package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

func TestEpochUsageListsEveryEpoch(t *testing.T) {
	for _, e := range []string{"h", "d", "m", "y"} {
		assert.Contains(t, epochUsage, e+" (")
		_, err := domain.ParseEpoch(e)
		assert.NoError(t, err, e)
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-mode", "once", "-target", "0xabc", "-epoch", "y", "-config", ""})
	require.NoError(t, err)
	assert.Equal(t, options{mode: "once", target: "0xabc", epoch: "y"}, opts)

	opts, err = parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "config.toml", opts.configPath)
}
