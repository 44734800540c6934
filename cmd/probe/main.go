// Command probe reads the configured sensors side by side and prints each
// distance, for checking wiring and calibration ranges. On exit it prints
// per-sensor statistics.
//
// Usage:
//
//	probe -config therepi.yaml -interval 200ms
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/config"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/sensor"
)

type probe struct {
	name     string
	rng      string
	drv      *sensor.Driver
	samples  []float64
	timeouts int
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file (default: one sensor on BCM 23/24)")
	interval := flag.Duration("interval", 500*time.Millisecond, "time between rounds")
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	flag.Parse()

	logger := logging.New(*debug)
	if err := run(*configPath, *interval, logger); err != nil {
		logger.Error("probe: exiting", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, interval time.Duration, logger *slog.Logger) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}

	var probes []*probe
	defer func() {
		for _, p := range probes {
			_ = p.drv.Close()
		}
	}()
	for _, ch := range cfg.Channels {
		drv, err := sensor.OpenGPIO(ch.GPIO.Chip, ch.GPIO.Trigger, ch.GPIO.Echo,
			sensor.WithSettle(ch.Settle),
			sensor.WithTimeout(ch.Timeout),
			sensor.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		probes = append(probes, &probe{
			name: ch.Name,
			rng:  fmt.Sprintf("%.0f-%.0f cm", ch.Range.Min, ch.Range.Max),
			drv:  drv,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := time.NewTicker(interval)
	defer t.Stop()
loop:
	for {
		line, err := round(ctx, probes)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			return err
		}
		fmt.Println(line)
		select {
		case <-ctx.Done():
			break loop
		case <-t.C:
		}
	}
	summarize(os.Stdout, probes)
	return nil
}

// round measures every sensor once, in order, so their pings do not overlap.
func round(ctx context.Context, probes []*probe) (string, error) {
	var b strings.Builder
	for i, p := range probes {
		if i > 0 {
			b.WriteString("  ")
		}
		s, err := p.drv.Measure(ctx)
		switch {
		case errors.Is(err, sensor.ErrTimeout):
			p.timeouts++
			fmt.Fprintf(&b, "%s: timeout", p.name)
		case err != nil:
			return "", fmt.Errorf("probe %s: %w", p.name, err)
		default:
			p.samples = append(p.samples, s.DistanceCM)
			fmt.Fprintf(&b, "%s: %6.1f cm", p.name, s.DistanceCM)
		}
	}
	return b.String(), nil
}

func summarize(w io.Writer, probes []*probe) {
	fmt.Fprintln(w)
	for _, p := range probes {
		if len(p.samples) == 0 {
			fmt.Fprintf(w, "%s: no readings, %d timeouts\n", p.name, p.timeouts)
			continue
		}
		mean, std := stat.MeanStdDev(p.samples, nil)
		fmt.Fprintf(w, "%s: n=%d mean=%.1f std=%.2f min=%.1f max=%.1f timeouts=%d (range %s)\n",
			p.name, len(p.samples), mean, std, floats.Min(p.samples), floats.Max(p.samples), p.timeouts, p.rng)
	}
}
