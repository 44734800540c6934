// Package midifile plays Standard MIDI Files onto a MIDI sender in real time.
package midifile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/midiout"
)

// Event is one playable message at its offset from the start of the song.
type Event struct {
	At  time.Duration
	Msg midi.Message
}

// Load reads every playable message in the file, all tracks merged and
// ordered by time. Meta events are skipped.
func Load(r io.Reader) ([]Event, error) {
	var events []Event
	tr := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		if !te.Message.IsPlayable() {
			return
		}
		events = append(events, Event{
			At:  time.Duration(te.AbsMicroSeconds) * time.Microsecond,
			Msg: midi.Message(te.Message.Bytes()),
		})
	})
	if err := tr.Error(); err != nil {
		return nil, fmt.Errorf("midifile: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })
	return events, nil
}

func LoadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("midifile: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Sleeper waits for d or until ctx is done. sensor.SystemClock is one.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type Player struct {
	Out    midiout.Sender
	Clock  Sleeper
	Logger *slog.Logger
}

type noteKey struct{ ch, key uint8 }

// Play sends each event at its offset from the start. When ctx is cancelled
// it turns off every note still sounding and returns nil.
func (p *Player) Play(ctx context.Context, events []Event) error {
	logger := logging.OrDefault(p.Logger)
	held := map[noteKey]bool{}
	var last time.Duration
	for _, ev := range events {
		if err := p.Clock.Sleep(ctx, ev.At-last); err != nil {
			logger.Info("midifile: stopped", "at", last)
			return p.release(held)
		}
		last = ev.At
		if err := p.Out.Send(ev.Msg); err != nil {
			return fmt.Errorf("midifile: %w", err)
		}
		logger.Debug("midifile: sent", "at", ev.At, "msg", ev.Msg.String())

		var ch, key, vel uint8
		switch {
		case ev.Msg.GetNoteStart(&ch, &key, &vel):
			held[noteKey{ch, key}] = true
		case ev.Msg.GetNoteEnd(&ch, &key):
			delete(held, noteKey{ch, key})
		}
	}
	logger.Info("midifile: finished", "events", len(events), "length", last)
	return nil
}

func (p *Player) release(held map[noteKey]bool) error {
	keys := make([]noteKey, 0, len(held))
	for k := range held {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ch != keys[j].ch {
			return keys[i].ch < keys[j].ch
		}
		return keys[i].key < keys[j].key
	})
	for _, k := range keys {
		if err := p.Out.Send(midi.NoteOff(k.ch, k.key)); err != nil {
			return fmt.Errorf("midifile: release: %w", err)
		}
	}
	return nil
}
