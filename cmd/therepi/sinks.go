package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/channel"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/config"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/midiout"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/transport"
)

const portTick = 250 * time.Millisecond

// sinks hands out channel emitters. soundserver and midibridge accept a
// single client, so there is one connection per endpoint and channels share
// it. Channel emitters never close a shared connection; Close does.
type sinks struct {
	cfg    *config.Config
	logger *slog.Logger

	values map[transport.Endpoint]transport.Sender
	stream *transport.MIDIStream
	port   *midiout.Port

	stopTick context.CancelFunc
	ticking  sync.WaitGroup
}

func newSinks(cfg *config.Config, logger *slog.Logger) *sinks {
	return &sinks{cfg: cfg, logger: logger, values: map[transport.Endpoint]transport.Sender{}}
}

// emitter connects ch to its sink, dialing on first use.
func (s *sinks) emitter(ctx context.Context, ch config.Channel) (channel.Emitter, error) {
	midiCh := uint8(ch.MIDIChannel)
	switch {
	case !ch.UsesMIDI():
		ep := *ch.Values
		out, ok := s.values[ep]
		if !ok {
			var err error
			if out, err = transport.Dial(ctx, ep, s.logger); err != nil {
				return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
			}
			s.values[ep] = out
		}
		return channel.NewValueEmitter(keepOpen{out}, s.logger), nil
	case s.cfg.MIDI.Address != "":
		if s.stream == nil {
			st, err := transport.DialMIDI(ctx, s.cfg.MIDI.Address, s.logger)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
			}
			s.stream = st
		}
		return midiout.NewEmitter(shared{s.stream}, midiCh, s.logger), nil
	}

	if s.port == nil {
		pc := midiout.PortConfig{Excluded: s.cfg.MIDI.Exclude}
		if s.cfg.MIDI.Port != "" {
			pc.Preferred = []string{s.cfg.MIDI.Port}
		}
		p, err := midiout.OpenPort(pc, s.logger)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
		}
		s.port = p
		s.startTick(ctx)
	}
	if _, ok := s.port.Connected(); !ok {
		s.logger.Warn("therepi: no midi output yet, notes are dropped until one appears", "channel", ch.Name)
	}
	return midiout.NewEmitter(shared{s.port}, midiCh, s.logger), nil
}

// startTick rescans the local port for hot-plugged devices until Close.
func (s *sinks) startTick(ctx context.Context) {
	ctx, s.stopTick = context.WithCancel(ctx)
	s.ticking.Add(1)
	go func() {
		defer s.ticking.Done()
		t := time.NewTicker(portTick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.port.Tick()
			}
		}
	}()
}

// Close stops the port rescans before closing anything, then closes every
// connection.
func (s *sinks) Close() error {
	if s.stopTick != nil {
		s.stopTick()
		s.ticking.Wait()
	}
	var errs []error
	for _, out := range s.values {
		errs = append(errs, out.Close())
	}
	if s.stream != nil {
		errs = append(errs, s.stream.Close())
	}
	if s.port != nil {
		errs = append(errs, s.port.Close())
	}
	return errors.Join(errs...)
}

// shared hides a MIDI sender's Close from the channel emitters.
type shared struct{ midiout.Sender }

// keepOpen does the same for value senders.
type keepOpen struct{ transport.Sender }

func (keepOpen) Close() error { return nil }
