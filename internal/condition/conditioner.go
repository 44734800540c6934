// Package condition smooths raw distance readings and gates out
// jitter-sized changes.
package condition

import "math"

const (
	DefaultWindow    = 5
	DefaultThreshold = 2.0 // cm
)

// Reading is the result of observing one raw distance.
type Reading struct {
	Value    float64
	Accepted bool
}

// Conditioner keeps a bounded moving window and a hysteresis gate for a
// single sensor. It is not safe for concurrent use.
type Conditioner struct {
	window    []float64
	head      int
	n         int
	threshold float64

	last     float64
	accepted bool
}

// New returns a Conditioner averaging the last window values and accepting
// changes of at least threshold. Non-positive arguments select the defaults.
func New(window int, threshold float64) *Conditioner {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold < 0 || math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}
	return &Conditioner{window: make([]float64, window), threshold: threshold}
}

// Observe pushes raw into the window and reports the smoothed value and
// whether it moved far enough from the last accepted value.
func (c *Conditioner) Observe(raw float64) Reading {
	size := len(c.window)
	c.window[(c.head+c.n)%size] = raw
	if c.n < size {
		c.n++
	} else {
		c.head = (c.head + 1) % size
	}

	v := c.mean()
	r := Reading{Value: v}
	if !c.accepted || math.Abs(v-c.last) >= c.threshold {
		r.Accepted = true
		c.accepted = true
		c.last = v
	}
	return r
}

// mean is taken relative to the oldest sample so a window of identical
// values averages to exactly that value.
func (c *Conditioner) mean() float64 {
	size := len(c.window)
	pivot := c.window[c.head]
	var sum float64
	for i := 1; i < c.n; i++ {
		sum += c.window[(c.head+i)%size] - pivot
	}
	return pivot + sum/float64(c.n)
}

// Last returns the last accepted value, if any.
func (c *Conditioner) Last() (float64, bool) { return c.last, c.accepted }

// Len is the number of samples currently in the window.
func (c *Conditioner) Len() int { return c.n }

// Reset empties the window and re-arms the gate.
func (c *Conditioner) Reset() {
	c.head, c.n = 0, 0
	c.last, c.accepted = 0, false
}
