// Package config loads, validates and hot-reloads the bot
// configuration from YAML.
package config

import "time"

type Config struct {
	App       AppConfig       `toml:"app"`
	Broker    BrokerConfig    `toml:"broker"`
	Risk      RiskConfig      `toml:"risk"`
	Execution ExecutionConfig `toml:"execution"`
	Feed      FeedConfig      `toml:"feed"`
	Store     StoreConfig     `toml:"store"`
	HTTP      HTTPConfig      `toml:"http"`
}

type AppConfig struct {
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

type BrokerConfig struct {
	// Mode selects the backend: "paper" or "binance".
	Mode           string `toml:"mode"`
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
	BaseURL        string `toml:"base_url"`
	HTTPTimeoutSec int    `toml:"http_timeout_sec"`
}

type RiskConfig struct {
	InitialCapital      float64            `toml:"initial_capital"`
	ConfidenceLevel     float64            `toml:"confidence_level"`
	MaxDrawdownLimit    float64            `toml:"max_drawdown_limit"`
	MaxSingleOrderValue float64            `toml:"max_single_order_value"`
	MaxPositionSize     map[string]float64 `toml:"max_position_size"`
	RiskPerTrade        float64            `toml:"risk_per_trade"`
	StopLossPct         float64            `toml:"stop_loss_pct"`
}

type ExecutionConfig struct {
	SimulatedLatencyMs int     `toml:"simulated_latency_ms"`
	DedupeWindowSec    int     `toml:"dedupe_window_sec"`
	SlippageEnabled    bool    `toml:"slippage_enabled"`
	DefaultSpread      float64 `toml:"default_spread"`
	DefaultVolatility  float64 `toml:"default_volatility"`
	StaleTimeoutSec    int     `toml:"stale_timeout_sec"`
	SweepIntervalSec   int     `toml:"sweep_interval_sec"`
	LatencyLookback    int     `toml:"latency_lookback"`
	BreakerThreshold   int     `toml:"breaker_threshold"`
	BreakerTimeoutSec  int     `toml:"breaker_timeout_sec"`
}

type FeedConfig struct {
	URL       string   `toml:"url"`
	Symbols   []string `toml:"symbols"`
	QueueSize int      `toml:"queue_size"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

func (e ExecutionConfig) SimulatedLatency() time.Duration {
	return time.Duration(e.SimulatedLatencyMs) * time.Millisecond
}

func (e ExecutionConfig) DedupeWindow() time.Duration {
	return time.Duration(e.DedupeWindowSec) * time.Second
}

func (e ExecutionConfig) StaleTimeout() time.Duration {
	return time.Duration(e.StaleTimeoutSec) * time.Second
}

func (e ExecutionConfig) SweepInterval() time.Duration {
	return time.Duration(e.SweepIntervalSec) * time.Second
}

func (e ExecutionConfig) BreakerTimeout() time.Duration {
	return time.Duration(e.BreakerTimeoutSec) * time.Second
}

func (b BrokerConfig) HTTPTimeout() time.Duration {
	return time.Duration(b.HTTPTimeoutSec) * time.Second
}
