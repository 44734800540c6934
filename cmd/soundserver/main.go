// Command soundserver receives frequency values from therepi and plays each
// one as a short sine tone. Values arrive as newline-terminated text over
// TCP or serial, or one per UDP datagram.
//
// Usage:
//
//	soundserver -network tcp -addr :8080
//	soundserver -network udp -addr :8080 -record session.wav
//	soundserver -network serial -addr /dev/ttyACM0 -mute -record out.wav
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/audio"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/transport"
)

type options struct {
	network string
	addr    string
	baud    int
	record  string
	mute    bool
	tone    time.Duration
	rate    int
}

func main() {
	var o options
	flag.StringVar(&o.network, "network", "tcp", "tcp, udp or serial")
	flag.StringVar(&o.addr, "addr", ":8080", "listen address, or serial device path")
	flag.IntVar(&o.baud, "baud", transport.DefaultBaud, "serial baud rate")
	flag.StringVar(&o.record, "record", "", "also write every tone to this WAV file")
	flag.BoolVar(&o.mute, "mute", false, "do not open the speaker")
	flag.DurationVar(&o.tone, "tone", audio.DefaultToneDuration, "length of each tone")
	flag.IntVar(&o.rate, "rate", audio.DefaultSampleRate, "sample rate in Hz")
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	flag.Parse()

	logger := logging.New(*debug)
	if err := run(o, logger); err != nil {
		logger.Error("soundserver: exiting", "err", err)
		os.Exit(1)
	}
}

func run(o options, logger *slog.Logger) (err error) {
	if o.mute && o.record == "" {
		return errors.New("soundserver: -mute needs -record, otherwise nothing is rendered")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var players []audio.Player
	if !o.mute {
		sp, serr := audio.NewSpeaker(o.rate, logger)
		if serr != nil {
			return serr
		}
		defer func() { err = errors.Join(err, sp.Close()) }()
		players = append(players, sp)
	}
	if o.record != "" {
		rec, rerr := audio.NewRecorder(o.record, o.rate, logger)
		if rerr != nil {
			return rerr
		}
		defer func() { err = errors.Join(err, rec.Close()) }()
		players = append(players, rec)
	}
	player := audio.Tee(players...)

	sink := func(hz float64) {
		logger.Debug("soundserver: value", "hz", transport.FormatValue(hz))
		player.PlayTone(hz, o.tone)
	}

	logger.Info("soundserver starting", "network", o.network, "addr", o.addr, "record", o.record, "mute", o.mute)
	switch o.network {
	case "tcp":
		conn, err := transport.ListenOne(ctx, "tcp", o.addr, logger)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		defer conn.Close()
		return transport.ServeStream(ctx, conn, sink, logger)
	case "udp":
		pc, err := transport.ListenPacket(ctx, "udp", o.addr)
		if err != nil {
			return err
		}
		defer pc.Close()
		return transport.ServeDatagrams(ctx, pc, sink, logger)
	case "serial":
		sp, err := transport.OpenSerial(o.addr, o.baud, logger)
		if err != nil {
			return err
		}
		defer sp.Close()
		return transport.ServeStream(ctx, sp, sink, logger)
	}
	return fmt.Errorf("%w: %q", transport.ErrUnknownNetwork, o.network)
}
