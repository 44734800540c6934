package notes

import "github.com/brendanscheidt/CS370-Pi-Theremin/internal/scale"

// DefaultVelocity is used when no velocity mapping is configured.
const DefaultVelocity = 127

// Mapped is one cycle's mapping result. OK is false for the out-of-range
// sentinel.
type Mapped struct {
	Note     int
	Velocity int
	OK       bool
}

// State is the last emitted musical state.
type State struct {
	Sounding  bool
	Note      int
	Velocity  int
	PitchBend int
}

// Machine tracks Silent/Sounding for a quantized-note channel.
type Machine struct {
	state State
}

func NewMachine() *Machine {
	return &Machine{state: State{PitchBend: scale.BendCenter}}
}

func (m *Machine) State() State { return m.state }

// Step applies one mapped value. A note change always yields NoteOff for the
// old note before NoteOn for the new one; a velocity-only change re-issues
// NoteOn without a NoteOff.
func (m *Machine) Step(in Mapped) []Event {
	s := &m.state
	switch {
	case !s.Sounding && !in.OK:
		return nil
	case !s.Sounding:
		s.Sounding, s.Note, s.Velocity = true, in.Note, in.Velocity
		return []Event{On(in.Note, in.Velocity)}
	case !in.OK:
		old := s.Note
		s.Sounding, s.Note, s.Velocity = false, 0, 0
		return []Event{Off(old)}
	case in.Note != s.Note:
		old := s.Note
		s.Note, s.Velocity = in.Note, in.Velocity
		return []Event{Off(old), On(in.Note, in.Velocity)}
	case in.Velocity != s.Velocity:
		s.Velocity = in.Velocity
		return []Event{On(in.Note, in.Velocity)}
	}
	return nil
}

// Shutdown silences a sounding note.
func (m *Machine) Shutdown() []Event {
	if !m.state.Sounding {
		return nil
	}
	return m.Step(Mapped{})
}
