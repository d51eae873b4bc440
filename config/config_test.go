package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.NumTranscoders)
	assert.Equal(t, uint64(2), cfg.UnbondingPeriod)
}

func TestGetConfigMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := GetConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestGetConfigReadsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	data := "num_transcoders = 25\nunbonding_period = 7\nlog_format = \"json\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := GetConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.NumTranscoders)
	assert.Equal(t, uint64(7), cfg.UnbondingPeriod)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)

	// untouched keys keep their defaults
	assert.Equal(t, DefaultConfig().InflationRate, cfg.InflationRate)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.NumTranscoders = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.UnbondingPeriod = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LogFormat = "xml"
	assert.Error(t, cfg.Validate())
}
