package channel

import (
	"fmt"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/config"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/notes"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/scale"
)

// Profile turns conditioned distances into note events. Step is called once
// per successful measurement; fresh is false when the hysteresis gate held
// the reading back.
type Profile interface {
	Start() []notes.Event
	Step(distance float64, fresh bool) []notes.Event
	Shutdown() []notes.Event
}

// NoteProfile quantizes distance onto a scale and drives a notes.Machine.
type NoteProfile struct {
	rng      scale.Range
	scale    scale.Quantized
	velocity *scale.Linear
	machine  *notes.Machine
}

// NewNoteProfile maps over rng onto q. A nil velocity plays every note at
// notes.DefaultVelocity.
func NewNoteProfile(rng scale.Range, q scale.Quantized, velocity *scale.Linear) *NoteProfile {
	return &NoteProfile{rng: rng, scale: q, velocity: velocity, machine: notes.NewMachine()}
}

func (p *NoteProfile) Start() []notes.Event { return nil }

func (p *NoteProfile) Step(d float64, fresh bool) []notes.Event {
	if !fresh {
		return nil
	}
	n, ok := p.rng.Note(d, p.scale)
	v := notes.DefaultVelocity
	if p.velocity != nil {
		if lv, lok := p.rng.Linear(d, *p.velocity); lok {
			v = lv
		}
	}
	return p.machine.Step(notes.Mapped{Note: n, Velocity: v, OK: ok})
}

func (p *NoteProfile) Shutdown() []notes.Event { return p.machine.Shutdown() }

// State exposes the underlying machine state.
func (p *NoteProfile) State() notes.State { return p.machine.State() }

// BendProfile holds one note and bends it toward the frequency the distance
// maps to.
type BendProfile struct {
	rng       scale.Range
	band      scale.Continuous
	baseFreq  float64
	semitones float64
	machine   *notes.BendMachine
}

func NewBendProfile(rng scale.Range, band scale.Continuous, b config.Bend) *BendProfile {
	return &BendProfile{
		rng:       rng,
		band:      band,
		baseFreq:  scale.NoteFrequency(b.BaseNote),
		semitones: b.Range,
		machine:   notes.NewBendMachine(b.BaseNote, notes.DefaultVelocity, b.Threshold),
	}
}

func (p *BendProfile) Start() []notes.Event { return p.machine.Start() }

func (p *BendProfile) Step(d float64, fresh bool) []notes.Event {
	if !fresh {
		return nil
	}
	freq, _ := p.rng.Frequency(d, p.band)
	return p.machine.Step(scale.PitchBend(freq, p.baseFreq, p.semitones))
}

func (p *BendProfile) Shutdown() []notes.Event { return p.machine.Shutdown() }

// ToneProfile emits the continuous frequency every cycle, repeating the last
// accepted one while the gate holds.
type ToneProfile struct {
	rng     scale.Range
	band    scale.Continuous
	tracker notes.ToneTracker
}

func NewToneProfile(rng scale.Range, band scale.Continuous) *ToneProfile {
	return &ToneProfile{rng: rng, band: band}
}

func (p *ToneProfile) Start() []notes.Event { return nil }

func (p *ToneProfile) Step(d float64, fresh bool) []notes.Event {
	freq, _ := p.rng.Frequency(d, p.band)
	return p.tracker.Step(freq, fresh)
}

func (p *ToneProfile) Shutdown() []notes.Event { return nil }

// NewProfile picks the profile for ch.Mode.
func NewProfile(ch config.Channel) (Profile, error) {
	switch ch.Mode {
	case config.ModeFrequency:
		return NewToneProfile(ch.Range, ch.Frequency), nil
	case config.ModeNote:
		q, err := ch.Quantized()
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
		}
		return NewNoteProfile(ch.Range, q, ch.Velocity), nil
	case config.ModeBend:
		return NewBendProfile(ch.Range, ch.Frequency, ch.Bend), nil
	}
	return nil, fmt.Errorf("channel %s: %w: unknown mode %q", ch.Name, config.ErrInvalid, ch.Mode)
}
