// Package transport carries perishable control values between the sensor
// host and the sound renderer. There is no acknowledgement, retry or
// sequencing: a lost value is superseded by the next one.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
)

var ErrUnknownNetwork = errors.New("transport: unknown network")

// Endpoint names where values are sent. Network is "tcp", "udp" or
// "serial"; for serial, Address is the device path.
type Endpoint struct {
	Network string `yaml:"network"`
	Address string `yaml:"address"`
	Baud    int    `yaml:"baud"`
}

func (e Endpoint) String() string { return e.Network + "://" + e.Address }

// Sender delivers one value per call.
type Sender interface {
	Send(v float64) error
	Close() error
}

// StreamSender writes newline-terminated values onto a byte stream. It is
// safe for concurrent use; each value is written whole.
type StreamSender struct {
	mu  sync.Mutex
	w   io.WriteCloser
	buf []byte
}

func NewStreamSender(w io.WriteCloser) *StreamSender {
	return &StreamSender{w: w, buf: make([]byte, 0, 32)}
}

func (s *StreamSender) Send(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = AppendLine(s.buf[:0], v)
	if _, err := s.w.Write(s.buf); err != nil {
		return fmt.Errorf("transport: write %s: %w", FormatValue(v), err)
	}
	return nil
}

func (s *StreamSender) Close() error { return s.w.Close() }

// DatagramSender sends each value as the whole payload of one datagram.
type DatagramSender struct {
	mu   sync.Mutex
	conn net.Conn
	buf  []byte
}

func NewDatagramSender(conn net.Conn) *DatagramSender {
	return &DatagramSender{conn: conn, buf: make([]byte, 0, 32)}
}

func (s *DatagramSender) Send(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = AppendValue(s.buf[:0], v)
	if _, err := s.conn.Write(s.buf); err != nil {
		return fmt.Errorf("transport: send %s: %w", FormatValue(v), err)
	}
	return nil
}

func (s *DatagramSender) Close() error { return s.conn.Close() }

// Dial opens a Sender for the endpoint.
func Dial(ctx context.Context, ep Endpoint, logger *slog.Logger) (Sender, error) {
	logger = logging.OrDefault(logger)
	var d net.Dialer
	switch ep.Network {
	case "tcp", "tcp4", "tcp6":
		conn, err := d.DialContext(ctx, ep.Network, ep.Address)
		if err != nil {
			return nil, fmt.Errorf("transport: dial %s: %w", ep, err)
		}
		logger.Info("transport: connected", "endpoint", ep.String())
		return NewStreamSender(conn), nil
	case "udp", "udp4", "udp6":
		conn, err := d.DialContext(ctx, ep.Network, ep.Address)
		if err != nil {
			return nil, fmt.Errorf("transport: dial %s: %w", ep, err)
		}
		logger.Info("transport: datagram socket ready", "endpoint", ep.String())
		return NewDatagramSender(conn), nil
	case "serial":
		p, err := OpenSerial(ep.Address, ep.Baud, logger)
		if err != nil {
			return nil, err
		}
		return NewStreamSender(p), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, ep.Network)
}
