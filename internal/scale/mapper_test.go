package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	calib  = Range{Min: 15, Max: 70}
	aMinor = Quantized{Notes: []int{57, 59, 60, 62, 64, 65, 67, 69}}
)

func TestRangeValidate(t *testing.T) {
	require.NoError(t, calib.Validate())
	assert.ErrorIs(t, Range{Min: 70, Max: 15}.Validate(), ErrInvalidRange)
	assert.ErrorIs(t, Range{Min: 10, Max: 10}.Validate(), ErrInvalidRange)
}

func TestFrequencyEndpointsAndClamp(t *testing.T) {
	band := Continuous{MinFreq: 220, MaxFreq: 440}

	hz, ok := calib.Frequency(15, band)
	assert.True(t, ok)
	assert.InDelta(t, 220, hz, 1e-9)

	hz, ok = calib.Frequency(70, band)
	assert.True(t, ok)
	assert.InDelta(t, 440, hz, 1e-9)

	hz, ok = calib.Frequency(42.5, band)
	assert.True(t, ok)
	assert.InDelta(t, 330, hz, 1e-9)

	hz, ok = calib.Frequency(5, band)
	assert.False(t, ok)
	assert.InDelta(t, 220, hz, 1e-9)

	hz, ok = calib.Frequency(500, band)
	assert.False(t, ok)
	assert.InDelta(t, 440, hz, 1e-9)
}

func TestMonotonic(t *testing.T) {
	band := Continuous{MinFreq: 220, MaxFreq: 440}
	vel := Linear{OutMin: 0, OutMax: 127}

	prevHz, prevVel := -1.0, -1
	for d := 0.0; d <= 90; d += 0.25 {
		hz, _ := calib.Frequency(d, band)
		v, _ := calib.Linear(d, vel)
		assert.GreaterOrEqual(t, hz, prevHz, "frequency at %v", d)
		assert.GreaterOrEqual(t, v, prevVel, "linear at %v", d)
		prevHz, prevVel = hz, v
	}
}

func TestNoteEndpoints(t *testing.T) {
	n, ok := calib.Note(calib.Min, aMinor)
	require.True(t, ok)
	assert.Equal(t, aMinor.Notes[0], n)

	n, ok = calib.Note(calib.Max, aMinor)
	require.True(t, ok)
	assert.Equal(t, aMinor.Notes[len(aMinor.Notes)-1], n)
}

func TestNoteRoundsToNearestIndex(t *testing.T) {
	n, ok := calib.Note(20, aMinor)
	require.True(t, ok)
	assert.Equal(t, 59, n) // index round(0.636) = 1

	n, ok = calib.Note(45, aMinor)
	require.True(t, ok)
	assert.Equal(t, 64, n) // index round(3.818) = 4
}

func TestNoteOutOfRangeSentinel(t *testing.T) {
	_, ok := calib.Note(14.99, aMinor)
	assert.False(t, ok)
	_, ok = calib.Note(70.01, aMinor)
	assert.False(t, ok)
	_, ok = calib.Note(30, Quantized{})
	assert.False(t, ok)
}

func TestLinear(t *testing.T) {
	l := Linear{OutMin: 40, OutMax: 127}

	v, ok := calib.Linear(15, l)
	assert.True(t, ok)
	assert.Equal(t, 40, v)

	v, ok = calib.Linear(70, l)
	assert.True(t, ok)
	assert.Equal(t, 127, v)

	v, ok = calib.Linear(100, l)
	assert.False(t, ok)
	assert.Equal(t, 127, v)

	v, _ = calib.Linear(70, Linear{OutMin: 0, OutMax: 500})
	assert.Equal(t, MIDIMax, v)
}

func TestPitchBend(t *testing.T) {
	assert.Equal(t, BendCenter, PitchBend(220, 220, 2))
	assert.Equal(t, BendMax, PitchBend(220*4, 220, 2))
	assert.Equal(t, BendMin, PitchBend(220/4.0, 220, 2))

	// One semitone up in a ±2 semitone range is three quarters of the span.
	up := PitchBend(NoteFrequency(58), NoteFrequency(57), 2)
	assert.InDelta(t, 12288, up, 1)

	assert.Equal(t, BendCenter, PitchBend(0, 220, 2))
	assert.Equal(t, PitchBend(300, 220, 2), PitchBend(300, 220, 2))
}

func TestNoteFrequency(t *testing.T) {
	assert.InDelta(t, 440, NoteFrequency(69), 1e-9)
	assert.InDelta(t, 220, NoteFrequency(57), 1e-9)
}
