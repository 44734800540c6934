package transport

import (
	"fmt"
	"log/slog"

	"go.bug.st/serial"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
)

const DefaultBaud = 115200

// SerialPort wraps a go.bug.st/serial port as a byte stream.
type SerialPort struct {
	port   serial.Port
	name   string
	logger *slog.Logger
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(name string, baud int, logger *slog.Logger) (*SerialPort, error) {
	logger = logging.OrDefault(logger)
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("transport: open serial %s: %w", name, err)
	}
	logger.Info("serial: port opened", "device", name, "baud", baud)
	return &SerialPort{port: p, name: name, logger: logger}, nil
}

func (s *SerialPort) Write(p []byte) (int, error) { return s.port.Write(p) }

func (s *SerialPort) Read(p []byte) (int, error) { return s.port.Read(p) }

// Close closes the underlying serial port.
func (s *SerialPort) Close() error {
	s.logger.Info("serial: closing port", "device", s.name)
	return s.port.Close()
}
