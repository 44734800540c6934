// Package midiout turns note events into MIDI messages and delivers them to
// a local MIDI output port or a remote MIDI stream.
package midiout

import (
	"fmt"
	"io"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/notes"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/scale"
)

// Sender accepts encoded MIDI messages.
type Sender interface {
	Send(msg midi.Message) error
}

func data7(v int) uint8 { return uint8(min(max(v, 0), scale.MIDIMax)) }

// Message encodes ev for the given channel (0-15). ContinuousTone has no
// MIDI form and reports false. NoteOn velocity is kept at 1 or above since a
// zero velocity NoteOn means NoteOff.
func Message(ev notes.Event, channel uint8) (midi.Message, bool) {
	channel &= 0x0F
	switch ev.Kind {
	case notes.NoteOn:
		return midi.NoteOn(channel, data7(ev.Note), max(data7(ev.Velocity), 1)), true
	case notes.NoteOff:
		return midi.NoteOff(channel, data7(ev.Note)), true
	case notes.PitchBend:
		b := min(max(ev.Bend, scale.BendMin), scale.BendMax)
		return midi.Pitchbend(channel, int16(b-scale.BendCenter)), true
	}
	return nil, false
}

// Emitter delivers note events to a Sender on one MIDI channel.
type Emitter struct {
	out     Sender
	channel uint8
	logger  *slog.Logger
}

func NewEmitter(out Sender, channel uint8, logger *slog.Logger) *Emitter {
	return &Emitter{out: out, channel: channel, logger: logging.OrDefault(logger)}
}

func (e *Emitter) Emit(ev notes.Event) error {
	msg, ok := Message(ev, e.channel)
	if !ok {
		e.logger.Debug("midi: event has no midi form", "event", ev.String())
		return nil
	}
	if err := e.out.Send(msg); err != nil {
		return fmt.Errorf("midi: send %s: %w", ev, err)
	}
	e.logger.Info("midi: sent", "event", ev.String(), "ch", e.channel)
	return nil
}

// Close closes the underlying Sender when it is closable.
func (e *Emitter) Close() error {
	if c, ok := e.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
