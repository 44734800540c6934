package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
)

const (
	readChunk   = 1024
	maxDatagram = 1500
)

// Sink receives each decoded value.
type Sink func(v float64)

// ServeStream decodes newline-terminated values from r until EOF or ctx is
// done. Malformed lines are logged and skipped. EOF and cancellation return
// nil; other read errors are returned.
func ServeStream(ctx context.Context, r io.Reader, sink Sink, logger *slog.Logger) error {
	logger = logging.OrDefault(logger)
	dec := &LineDecoder{OnDiscard: func(line []byte, err error) {
		logger.Warn("transport: bad data", "line", string(line), "err", err)
	}}
	return readLoop(ctx, r, logger, func(chunk []byte) {
		for _, v := range dec.Feed(chunk) {
			sink(v)
		}
	})
}

func readLoop(ctx context.Context, r io.Reader, logger *slog.Logger, feed func([]byte)) error {
	stop := interruptOnDone(ctx, r)
	defer stop()

	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			feed(buf[:n])
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			logger.Info("transport: client disconnected")
			return nil
		}
		return fmt.Errorf("transport: read: %w", err)
	}
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// interruptOnDone unblocks a pending Read once ctx is done, via a read
// deadline when available or by closing the reader.
func interruptOnDone(ctx context.Context, r any) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		switch v := r.(type) {
		case readDeadliner:
			_ = v.SetReadDeadline(time.Now())
		case io.Closer:
			_ = v.Close()
		}
	})
}

// ServeDatagrams parses every datagram on pc as one value. Malformed
// datagrams are logged and skipped.
func ServeDatagrams(ctx context.Context, pc net.PacketConn, sink Sink, logger *slog.Logger) error {
	logger = logging.OrDefault(logger)
	stop := interruptOnDone(ctx, pc)
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := pc.ReadFrom(buf)
		if n > 0 {
			if v, perr := ParseValue(buf[:n]); perr != nil {
				logger.Warn("transport: bad datagram", "from", addrString(from), "payload", string(buf[:n]), "err", perr)
			} else {
				sink(v)
			}
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("transport: read datagram: %w", err)
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

// ListenOne listens on addr and returns the first accepted connection. The
// listener is closed before returning: one producer, one consumer.
func ListenOne(ctx context.Context, network, addr string, logger *slog.Logger) (net.Conn, error) {
	logger = logging.OrDefault(logger)
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	defer ln.Close()
	logger.Info("transport: listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	logger.Info("transport: client connected", "from", conn.RemoteAddr().String())
	return conn, nil
}

// ListenPacket opens a datagram socket on addr.
func ListenPacket(ctx context.Context, network, addr string) (net.PacketConn, error) {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return pc, nil
}
