package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompensatorAverage(t *testing.T) {
	c := NewCompensator(10)
	assert.Equal(t, time.Duration(0), c.Average())

	c.Record(10 * time.Millisecond)
	c.Record(20 * time.Millisecond)
	c.Record(30 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, c.Average())
}

func TestCompensatorLookbackWindow(t *testing.T) {
	c := NewCompensator(3)
	for _, d := range []time.Duration{100, 1, 2, 3} {
		c.Record(d * time.Millisecond)
	}
	// the 100ms sample rolled off
	assert.Equal(t, 3, c.SampleCount())
	assert.Equal(t, 2*time.Millisecond, c.Average())
}

func TestCompensatorDegraded(t *testing.T) {
	c := NewCompensator(5)
	c.Record(50 * time.Millisecond)
	assert.True(t, c.Degraded(10*time.Millisecond))
	assert.False(t, c.Degraded(100*time.Millisecond))
	assert.False(t, c.Degraded(0))
}
