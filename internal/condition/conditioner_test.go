package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdenticalValuesAverageExactly(t *testing.T) {
	for _, raw := range []float64{0.1, 17.33, 42, 69.99} {
		c := New(5, 2)
		var r Reading
		for i := 0; i < 10; i++ {
			r = c.Observe(raw)
		}
		assert.Equal(t, raw, r.Value, "raw %v", raw)
	}
}

func TestOutlierBoundedByWindow(t *testing.T) {
	c := New(5, 2)
	for i := 0; i < 5; i++ {
		c.Observe(30)
	}
	r := c.Observe(80)
	assert.InDelta(t, 10.0, r.Value-30, 1e-9)
	assert.LessOrEqual(t, r.Value-30, (80.0-30.0)/5+1e-9)
}

func TestWindowEvictsOldest(t *testing.T) {
	c := New(3, 0)
	c.Observe(10)
	c.Observe(20)
	r := c.Observe(30)
	assert.InDelta(t, 20, r.Value, 1e-9)
	r = c.Observe(40)
	assert.InDelta(t, 30, r.Value, 1e-9)
	assert.Equal(t, 3, c.Len())
}

func TestHysteresisGate(t *testing.T) {
	c := New(1, 2)

	r := c.Observe(20)
	assert.True(t, r.Accepted, "first value always accepted")

	r = c.Observe(21.5)
	assert.False(t, r.Accepted)
	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, 20.0, last)

	r = c.Observe(22)
	assert.True(t, r.Accepted, "exactly threshold is accepted")

	r = c.Observe(20.5)
	assert.False(t, r.Accepted)
	r = c.Observe(19.9)
	assert.True(t, r.Accepted)
}

func TestDefaultsAndReset(t *testing.T) {
	c := New(0, -1)
	assert.Len(t, c.window, DefaultWindow)
	assert.Equal(t, DefaultThreshold, c.threshold)

	c.Observe(50)
	c.Reset()
	_, ok := c.Last()
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	assert.True(t, c.Observe(50).Accepted)
}
