// Command therepi reads ultrasonic distance sensors on a Raspberry Pi and
// turns hand position into sound: continuous tone values for a remote
// soundserver, or MIDI notes and pitch bend.
//
// Usage:
//
//	therepi -config therepi.yaml
//	therepi -debug              # built-in single pitch sensor on BCM 23/24
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/channel"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/config"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/sensor"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (default: one pitch sensor on BCM 23/24)")
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	flag.Parse()

	logger := logging.New(*debug)
	if err := run(*configPath, logger); err != nil {
		logger.Error("therepi: exiting", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	logger.Info("therepi starting", "config", configPath, "channels", len(cfg.Channels), "period", cfg.Period)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newSinks(cfg, logger)
	defer func() {
		if err := out.Close(); err != nil {
			logger.Warn("therepi: closing connections", "err", err)
		}
	}()

	var chans []*channel.Channel
	// Channels built so far own their hardware; release it if a later one fails.
	release := func() {
		for _, c := range chans {
			_ = c.Emitter.Close()
			_ = c.Sensor.Close()
		}
	}

	for _, ch := range cfg.Channels {
		drv, err := sensor.OpenGPIO(ch.GPIO.Chip, ch.GPIO.Trigger, ch.GPIO.Echo,
			sensor.WithSettle(ch.Settle),
			sensor.WithTimeout(ch.Timeout),
			sensor.WithLogger(logger.With("channel", ch.Name)),
		)
		if err != nil {
			release()
			return err
		}

		em, err := out.emitter(ctx, ch)
		if err != nil {
			_ = drv.Close()
			release()
			return err
		}

		c, err := channel.New(cfg, ch, drv, em, logger)
		if err != nil {
			_ = em.Close()
			_ = drv.Close()
			release()
			return err
		}
		chans = append(chans, c)
		logger.Info("therepi: channel ready", "channel", ch.Name, "mode", ch.Mode,
			"trigger", ch.GPIO.Trigger, "echo", ch.GPIO.Echo)
	}

	err := channel.RunAll(ctx, chans...)
	logger.Info("therepi: stopped")
	return err
}
