package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Broker.Mode) {
	case "paper", "binance":
	default:
		return fmt.Errorf("unknown broker mode %q (want paper or binance)", cfg.Broker.Mode)
	}
	if cfg.Risk.MaxSingleOrderValue < 0 {
		return fmt.Errorf("max_single_order_value must not be negative")
	}
	for sym, cap := range cfg.Risk.MaxPositionSize {
		if cap < 0 {
			return fmt.Errorf("max_position_size for %s must not be negative", sym)
		}
	}
	if cfg.Feed.URL != "" && len(cfg.Feed.Symbols) == 0 {
		return fmt.Errorf("feed url set but no symbols configured")
	}
	return nil
}
