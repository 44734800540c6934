// Package scale maps calibrated distances to musical control values.
// Every function is pure: identical inputs give identical outputs.
package scale

import (
	"errors"
	"fmt"
	"math"
)

const (
	BendMin    = 0
	BendCenter = 8192
	BendMax    = 16383

	MIDIMax = 127
)

// ErrInvalidRange is returned by Range.Validate.
var ErrInvalidRange = errors.New("scale: invalid calibration range")

// Range is the calibrated distance window in centimetres.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min >= r.Max {
		return fmt.Errorf("%w: min %v must be below max %v", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// Contains tests range membership on the raw, unclamped distance.
func (r Range) Contains(d float64) bool { return d >= r.Min && d <= r.Max }

func (r Range) Clamp(d float64) float64 { return math.Max(r.Min, math.Min(r.Max, d)) }

// fraction is the clamped position of d inside the range, in [0, 1].
func (r Range) fraction(d float64) float64 {
	return (r.Clamp(d) - r.Min) / (r.Max - r.Min)
}

// Continuous maps distance onto a frequency band in Hz.
type Continuous struct {
	MinFreq float64 `yaml:"min"`
	MaxFreq float64 `yaml:"max"`
}

// Quantized snaps distance to one of an ordered set of MIDI notes.
type Quantized struct {
	Notes []int
}

// Linear maps distance onto an integer control range such as velocity.
type Linear struct {
	OutMin int `yaml:"min"`
	OutMax int `yaml:"max"`
}

// Frequency returns the clamped interpolated frequency and whether d was
// inside the range. The frequency is valid either way.
func (r Range) Frequency(d float64, p Continuous) (float64, bool) {
	hz := p.MinFreq + (r.Clamp(d)-r.Min)*(p.MaxFreq-p.MinFreq)/(r.Max-r.Min)
	return hz, r.Contains(d)
}

// Note returns the scale note nearest to d's position, or false when d lies
// outside the range or the scale is empty.
func (r Range) Note(d float64, q Quantized) (int, bool) {
	if len(q.Notes) == 0 || !r.Contains(d) {
		return 0, false
	}
	return q.Notes[r.noteIndex(d, len(q.Notes))], true
}

func (r Range) noteIndex(d float64, n int) int {
	i := int(math.Round(r.fraction(d) * float64(n-1)))
	return min(max(i, 0), n-1)
}

// Linear interpolates d onto [OutMin, OutMax], rounds, and limits the result
// to the MIDI data range. It returns false for d outside the range.
func (r Range) Linear(d float64, l Linear) (int, bool) {
	v := float64(l.OutMin) + (r.Clamp(d)-r.Min)*float64(l.OutMax-l.OutMin)/(r.Max-r.Min)
	out := min(max(int(math.Round(v)), 0), MIDIMax)
	return out, r.Contains(d)
}

// PitchBend converts a frequency offset from base into a 14-bit bend value.
// The offset is limited to ±rangeSemitones, which spans the full bend range.
func PitchBend(freq, base, rangeSemitones float64) int {
	if freq <= 0 || base <= 0 || rangeSemitones <= 0 {
		return BendCenter
	}
	semis := 12 * math.Log2(freq/base)
	semis = math.Max(-rangeSemitones, math.Min(rangeSemitones, semis))
	v := BendCenter + math.Round(semis/rangeSemitones*BendCenter)
	return min(max(int(v), BendMin), BendMax)
}

// NoteFrequency is the equal-tempered frequency of a MIDI note (A4 = 440 Hz).
func NoteFrequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}
