// Command midibridge accepts a MIDI byte stream from a remote therepi and
// forwards it to a local MIDI output port, reconnecting to the port as
// devices come and go.
//
// Usage:
//
//	midibridge -addr :9000 -port "virtual MIDI"
//	midibridge -network serial -addr /dev/ttyUSB0
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/midiout"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/transport"
)

func main() {
	network := flag.String("network", "tcp", "tcp or serial")
	addr := flag.String("addr", ":9000", "listen address, or serial device path")
	baud := flag.Int("baud", transport.DefaultBaud, "serial baud rate")
	portName := flag.String("port", "", "preferred MIDI output name fragment")
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	flag.Parse()

	logger := logging.New(*debug)
	if err := run(*network, *addr, *baud, *portName, logger); err != nil {
		logger.Error("midibridge: exiting", "err", err)
		os.Exit(1)
	}
}

func run(network, addr string, baud int, portName string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg midiout.PortConfig
	if portName != "" {
		cfg.Preferred = []string{portName}
	}
	port, err := midiout.OpenPort(cfg, logger)
	if err != nil {
		return err
	}
	defer port.Close()

	var src io.ReadCloser
	switch network {
	case "tcp":
		conn, err := transport.ListenOne(ctx, "tcp", addr, logger)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		src = conn
	case "serial":
		sp, err := transport.OpenSerial(addr, baud, logger)
		if err != nil {
			return err
		}
		src = sp
	default:
		return fmt.Errorf("%w: %q", transport.ErrUnknownNetwork, network)
	}
	defer src.Close()

	tick := time.NewTicker(midiout.DefaultRescanInterval)
	defer tick.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				port.Tick()
			}
		}
	}()

	logger.Info("midibridge: forwarding", "network", network, "addr", addr)
	return transport.ServeMIDI(ctx, src, func(msg midi.Message) {
		if err := port.Send(msg); err != nil {
			logger.Warn("midibridge: send failed", "msg", msg.String(), "err", err)
			return
		}
		logger.Debug("midibridge: forwarded", "msg", msg.String())
	}, logger)
}
