package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/vidra-network/vidra-go-node/core/rewards"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"
)

// Config defines the top level configuration for the engine
type Config struct {
	// NumTranscoders is the candidate pool capacity; the active set is
	// drawn from this pool each round
	NumTranscoders int `mapstructure:"num_transcoders"`

	// NumReserveTranscoders is the reserve pool capacity
	NumReserveTranscoders int `mapstructure:"num_reserve_transcoders"`

	// UnbondingPeriod is the number of rounds funds stay locked after an
	// unbond or a forced exit
	UnbondingPeriod uint64 `mapstructure:"unbonding_period"`

	// InflationRate is the per-round issuance in millionths of total supply
	InflationRate uint32 `mapstructure:"inflation_rate"`

	// MaxLazyRounds bounds how many unapplied rounds a single catch-up
	// pass may walk; zero means unbounded
	MaxLazyRounds uint64 `mapstructure:"max_lazy_rounds"`

	// StateCacheSize is the iavl node cache size
	StateCacheSize int `mapstructure:"state_cache_size"`

	LogFormat string `mapstructure:"log_format"`
	LogPath   string `mapstructure:"log_path"`
}

// DefaultConfig returns the engine defaults
func DefaultConfig() *Config {
	return &Config{
		NumTranscoders:        10,
		NumReserveTranscoders: 20,
		UnbondingPeriod:       2,
		InflationRate:         rewards.DefaultInflationRate,
		MaxLazyRounds:         100,
		StateCacheSize:        1000000,
		LogFormat:             LogFormatPlain,
		LogPath:               "stdout",
	}
}

// GetConfig loads the config file from the given path over the defaults.
// A missing file is not an error: defaults apply.
func GetConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetDefault("num_transcoders", cfg.NumTranscoders)
	v.SetDefault("num_reserve_transcoders", cfg.NumReserveTranscoders)
	v.SetDefault("unbonding_period", cfg.UnbondingPeriod)
	v.SetDefault("inflation_rate", cfg.InflationRate)
	v.SetDefault("max_lazy_rounds", cfg.MaxLazyRounds)
	v.SetDefault("state_cache_size", cfg.StateCacheSize)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("log_path", cfg.LogPath)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects capacities and periods the engine cannot run with
func (cfg *Config) Validate() error {
	if cfg.NumTranscoders < 1 {
		return fmt.Errorf("num_transcoders must be at least 1, got %d", cfg.NumTranscoders)
	}
	if cfg.NumReserveTranscoders < 0 {
		return fmt.Errorf("num_reserve_transcoders must not be negative, got %d", cfg.NumReserveTranscoders)
	}
	if cfg.UnbondingPeriod < 1 {
		return fmt.Errorf("unbonding_period must be at least 1, got %d", cfg.UnbondingPeriod)
	}
	if cfg.LogFormat != LogFormatPlain && cfg.LogFormat != LogFormatJSON {
		return fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return nil
}
