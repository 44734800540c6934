// Package notes decides which musical events to emit as mapped values
// change. Each machine holds the only mutable musical state of one channel.
package notes

import (
	"fmt"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/scale"
)

// Kind tags an Event.
type Kind int

const (
	NoteOn Kind = iota + 1
	NoteOff
	PitchBend
	ContinuousTone
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	case PitchBend:
		return "PitchBend"
	case ContinuousTone:
		return "ContinuousTone"
	}
	return "Unknown"
}

// Event is a single output decision. Only the fields relevant to Kind are set.
type Event struct {
	Kind     Kind
	Note     int
	Velocity int
	Bend     int
	Freq     float64
}

func On(note, velocity int) Event { return Event{Kind: NoteOn, Note: note, Velocity: velocity} }
func Off(note int) Event          { return Event{Kind: NoteOff, Note: note} }
func Bend(value int) Event        { return Event{Kind: PitchBend, Bend: value} }
func Tone(freq float64) Event     { return Event{Kind: ContinuousTone, Freq: freq} }

func (e Event) String() string {
	switch e.Kind {
	case NoteOn:
		return fmt.Sprintf("NoteOn(%s, %d)", scale.PitchName(e.Note), e.Velocity)
	case NoteOff:
		return fmt.Sprintf("NoteOff(%s)", scale.PitchName(e.Note))
	case PitchBend:
		return fmt.Sprintf("PitchBend(%d)", e.Bend)
	case ContinuousTone:
		return fmt.Sprintf("ContinuousTone(%.2f)", e.Freq)
	}
	return "Unknown"
}
