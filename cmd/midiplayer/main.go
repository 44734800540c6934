// Command midiplayer plays a Standard MIDI File to a remote midibridge, or
// straight to a local MIDI output port when -addr is empty. Useful for
// checking the bridge and synth end to end without the sensors.
//
// Usage:
//
//	midiplayer -addr raspberrypi.local:9000 -file song.mid
//	midiplayer -addr "" -port "virtual MIDI" -file song.mid
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/midifile"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/midiout"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/sensor"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/transport"
)

func main() {
	addr := flag.String("addr", "localhost:9000", "midibridge address; empty plays to a local port")
	portName := flag.String("port", "", "preferred local MIDI output name fragment")
	file := flag.String("file", "", "Standard MIDI File to play")
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	flag.Parse()

	logger := logging.New(*debug)
	if err := run(*addr, *portName, *file, logger); err != nil {
		logger.Error("midiplayer: exiting", "err", err)
		os.Exit(1)
	}
}

func run(addr, portName, file string, logger *slog.Logger) (err error) {
	if file == "" {
		return errors.New("midiplayer: -file is required")
	}
	events, err := midifile.LoadFile(file)
	if err != nil {
		return err
	}
	logger.Info("midiplayer: loaded", "file", file, "events", len(events))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var out interface {
		midiout.Sender
		Close() error
	}
	if addr != "" {
		if out, err = transport.DialMIDI(ctx, addr, logger); err != nil {
			return err
		}
	} else {
		cfg := midiout.PortConfig{Excluded: midiout.DefaultExcluded}
		if portName != "" {
			cfg.Preferred = []string{portName}
		}
		port, perr := midiout.OpenPort(cfg, logger)
		if perr != nil {
			return perr
		}
		if name, ok := port.Connected(); ok {
			logger.Info("midiplayer: output", "port", name)
		} else {
			logger.Warn("midiplayer: no MIDI output connected; messages will be dropped")
		}
		out = port
	}
	defer func() { err = errors.Join(err, out.Close()) }()

	p := &midifile.Player{Out: out, Clock: sensor.SystemClock, Logger: logger}
	return p.Play(ctx, events)
}
