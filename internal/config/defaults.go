package config

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Broker.Mode == "" {
		c.Broker.Mode = "paper"
	}
	if c.Broker.HTTPTimeoutSec <= 0 {
		c.Broker.HTTPTimeoutSec = 10
	}
	if c.Risk.InitialCapital <= 0 {
		c.Risk.InitialCapital = 100000
	}
	if c.Risk.ConfidenceLevel <= 0 || c.Risk.ConfidenceLevel >= 1 {
		c.Risk.ConfidenceLevel = 0.95
	}
	if c.Risk.RiskPerTrade <= 0 {
		c.Risk.RiskPerTrade = 0.005
	}
	if c.Risk.StopLossPct <= 0 {
		c.Risk.StopLossPct = 0.02
	}
	if c.Execution.DedupeWindowSec <= 0 {
		c.Execution.DedupeWindowSec = 10
	}
	if c.Execution.StaleTimeoutSec <= 0 {
		c.Execution.StaleTimeoutSec = 300
	}
	if c.Execution.SweepIntervalSec <= 0 {
		c.Execution.SweepIntervalSec = 60
	}
	if c.Execution.LatencyLookback <= 0 {
		c.Execution.LatencyLookback = 50
	}
	if c.Execution.BreakerThreshold <= 0 {
		c.Execution.BreakerThreshold = 5
	}
	if c.Execution.BreakerTimeoutSec <= 0 {
		c.Execution.BreakerTimeoutSec = 30
	}
	if c.Feed.QueueSize <= 0 {
		c.Feed.QueueSize = 1024
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/orders.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}
