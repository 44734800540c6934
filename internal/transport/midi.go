package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
)

// MIDIStream writes raw MIDI messages onto a byte stream, one after the
// other with no extra framing. Several channels may share one stream.
type MIDIStream struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func NewMIDIStream(w io.WriteCloser) *MIDIStream { return &MIDIStream{w: w} }

// DialMIDI connects a MIDIStream to a TCP receiver.
func DialMIDI(ctx context.Context, addr string, logger *slog.Logger) (*MIDIStream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial midi %s: %w", addr, err)
	}
	logging.OrDefault(logger).Info("transport: midi stream connected", "addr", addr)
	return NewMIDIStream(conn), nil
}

func (s *MIDIStream) Send(msg midi.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("transport: write midi %s: %w", msg, err)
	}
	return nil
}

func (s *MIDIStream) Close() error { return s.w.Close() }

// ServeMIDI decodes MIDI messages from r until EOF or ctx is done. Framing,
// running status and sysex skipping are handled by the gomidi stream reader.
func ServeMIDI(ctx context.Context, r io.Reader, sink func(midi.Message), logger *slog.Logger) error {
	logger = logging.OrDefault(logger)
	rd := drivers.NewReader(drivers.ListenConfig{
		OnErr: func(err error) {
			logger.Debug("transport: dropped midi data", "err", err)
		},
	}, func(b []byte, _ int32) {
		sink(midi.Message(b))
	})
	return readLoop(ctx, r, logger, func(chunk []byte) {
		rd.EachMessage(chunk, 0)
	})
}
