package execution

import (
	"sync"
	"time"
)

const defaultLatencyLookback = 50

// Compensator keeps a rolling window of broker round-trip latencies so
// degraded responsiveness can be detected.
type Compensator struct {
	mu       sync.Mutex
	lookback int
	samples  []time.Duration
}

func NewCompensator(lookback int) *Compensator {
	if lookback <= 0 {
		lookback = defaultLatencyLookback
	}
	return &Compensator{lookback: lookback}
}

func (c *Compensator) Record(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, d)
	if len(c.samples) > c.lookback {
		c.samples = c.samples[len(c.samples)-c.lookback:]
	}
}

// Average returns the mean over the retained window, 0 when empty.
func (c *Compensator) Average() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range c.samples {
		total += d
	}
	return total / time.Duration(len(c.samples))
}

// Degraded reports whether the rolling average exceeds threshold.
func (c *Compensator) Degraded(threshold time.Duration) bool {
	return threshold > 0 && c.Average() > threshold
}

func (c *Compensator) SampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}
