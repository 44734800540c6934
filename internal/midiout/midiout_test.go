package midiout

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/notes"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/scale"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeOut struct {
	name    string
	open    bool
	sent    [][]byte
	sendErr error
}

func (f *fakeOut) Open() error             { f.open = true; return nil }
func (f *fakeOut) Close() error            { f.open = false; return nil }
func (f *fakeOut) IsOpen() bool            { return f.open }
func (f *fakeOut) Number() int             { return 0 }
func (f *fakeOut) String() string          { return f.name }
func (f *fakeOut) Underlying() interface{} { return nil }
func (f *fakeOut) Send(b []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), b...))
	return nil
}

type fakeDriver struct {
	outs   []*fakeOut
	closed bool
}

func (d *fakeDriver) Outs() ([]drivers.Out, error) {
	res := make([]drivers.Out, len(d.outs))
	for i, o := range d.outs {
		res[i] = o
	}
	return res, nil
}

func (d *fakeDriver) Close() error { d.closed = true; return nil }

func TestMessageEncoding(t *testing.T) {
	var ch, key, vel uint8

	msg, ok := Message(notes.On(60, 100), 3)
	require.True(t, ok)
	require.True(t, msg.GetNoteStart(&ch, &key, &vel))
	assert.Equal(t, []uint8{3, 60, 100}, []uint8{ch, key, vel})

	msg, ok = Message(notes.On(60, 0), 0)
	require.True(t, ok)
	require.True(t, msg.GetNoteStart(&ch, &key, &vel), "velocity 0 would read as NoteOff")
	assert.Equal(t, uint8(1), vel)

	msg, ok = Message(notes.Off(64), 0)
	require.True(t, ok)
	require.True(t, msg.GetNoteEnd(&ch, &key))
	assert.Equal(t, uint8(64), key)

	msg, ok = Message(notes.Bend(scale.BendMax), 0)
	require.True(t, ok)
	var rel int16
	var abs uint16
	require.True(t, msg.GetPitchBend(&ch, &rel, &abs))
	assert.Equal(t, uint16(scale.BendMax), abs)
	assert.Equal(t, int16(scale.BendMax-scale.BendCenter), rel)

	_, ok = Message(notes.Tone(440), 0)
	assert.False(t, ok)
}

type recorder struct {
	msgs   []midi.Message
	closed bool
}

func (r *recorder) Send(m midi.Message) error { r.msgs = append(r.msgs, m); return nil }
func (r *recorder) Close() error              { r.closed = true; return nil }

func TestEmitter(t *testing.T) {
	rec := &recorder{}
	e := NewEmitter(rec, 1, quiet)

	require.NoError(t, e.Emit(notes.On(57, 127)))
	require.NoError(t, e.Emit(notes.Tone(220)))
	require.NoError(t, e.Emit(notes.Off(57)))
	require.Len(t, rec.msgs, 2)
	assert.Equal(t, midi.NoteOn(1, 57, 127).Bytes(), rec.msgs[0].Bytes())
	assert.Equal(t, midi.NoteOff(1, 57).Bytes(), rec.msgs[1].Bytes())

	require.NoError(t, e.Close())
	assert.True(t, rec.closed)
}

func TestPortPrefersPatternAndSkipsExcluded(t *testing.T) {
	drv := &fakeDriver{outs: []*fakeOut{
		{name: "Midi Through Port-0"},
		{name: "FluidSynth virt"},
		{name: "virtual MIDI 1"},
	}}
	p := newPort(drv, PortConfig{Preferred: []string{"Virtual midi"}}, quiet)
	p.Tick()

	name, ok := p.Connected()
	require.True(t, ok)
	assert.Equal(t, "virtual MIDI 1", name)

	require.NoError(t, p.Send(midi.NoteOn(0, 60, 100)))
	assert.Len(t, drv.outs[2].sent, 1)
	assert.Empty(t, drv.outs[0].sent)
}

func TestPortDropsWhileDisconnected(t *testing.T) {
	drv := &fakeDriver{outs: []*fakeOut{{name: "A"}, {name: "B"}}}
	p := newPort(drv, PortConfig{}, quiet)

	assert.NoError(t, p.Send(midi.NoteOn(0, 60, 100)), "ambiguous choice, nothing connected")
	_, ok := p.Connected()
	assert.False(t, ok)
}

func TestPortHotUnplugAndSendError(t *testing.T) {
	out := &fakeOut{name: "synth"}
	drv := &fakeDriver{outs: []*fakeOut{out}}
	p := newPort(drv, PortConfig{}, quiet)
	p.Tick()
	_, ok := p.Connected()
	require.True(t, ok)

	out.sendErr = errors.New("unplugged")
	err := p.Send(midi.NoteOff(0, 60))
	assert.ErrorIs(t, err, out.sendErr)
	_, ok = p.Connected()
	assert.False(t, ok)
	assert.False(t, out.open)

	drv.outs = nil
	p.Tick()
	_, ok = p.Connected()
	assert.False(t, ok)

	require.NoError(t, p.Close())
	assert.True(t, drv.closed)
}
