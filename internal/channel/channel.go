// Package channel runs one sensor-to-sound pipeline per configured sensor:
// measure, condition, map, step and emit, once per period.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/condition"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/config"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/notes"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/sensor"
)

// Measurer is a distance sensor. *sensor.Driver implements it.
type Measurer interface {
	Measure(ctx context.Context) (sensor.Sample, error)
	Close() error
}

// Channel owns its sensor, conditioner, profile and emitter. Nothing in it
// is shared with other channels.
type Channel struct {
	Name       string
	Sensor     Measurer
	Smoother   *condition.Conditioner
	Profile    Profile
	Emitter    Emitter
	Period     time.Duration
	RetryDelay time.Duration
	Clock      sensor.Clock
	Logger     *slog.Logger

	held notes.Held
}

// New wires a channel from its configuration. The sensor and emitter are
// opened by the caller and owned by the channel from here on.
func New(cfg *config.Config, ch config.Channel, m Measurer, e Emitter, logger *slog.Logger) (*Channel, error) {
	p, err := NewProfile(ch)
	if err != nil {
		return nil, err
	}
	return &Channel{
		Name:       ch.Name,
		Sensor:     m,
		Smoother:   condition.New(ch.Smoothing.Window, ch.Smoothing.Threshold),
		Profile:    p,
		Emitter:    e,
		Period:     cfg.Period,
		RetryDelay: cfg.RetryDelay,
		Logger:     logging.OrDefault(logger).With("channel", ch.Name),
	}, nil
}

// Run loops until ctx is cancelled or the emitter fails. Cancellation returns
// nil. On the way out it turns off every delivered note, then closes the
// emitter, then the sensor.
func (c *Channel) Run(ctx context.Context) (err error) {
	logger := logging.OrDefault(c.Logger)
	clock := c.Clock
	if clock == nil {
		clock = sensor.SystemClock
	}
	if c.Smoother == nil {
		c.Smoother = condition.New(condition.DefaultWindow, condition.DefaultThreshold)
	}
	period := c.Period
	if period <= 0 {
		period = config.DefaultPeriod
	}
	retry := c.RetryDelay
	if retry <= 0 {
		retry = config.DefaultRetryDelay
	}

	defer func() {
		if cerr := c.Sensor.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("channel %s: close sensor: %w", c.Name, cerr))
		}
		logger.Info("channel: sensor released")
	}()
	defer func() {
		if cerr := c.Emitter.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("channel %s: close emitter: %w", c.Name, cerr))
		}
	}()
	defer func() {
		if serr := c.silence(); serr != nil {
			err = errors.Join(err, serr)
		}
	}()

	logger.Info("channel: running", "period", period)
	if err := c.emit(c.Profile.Start()); err != nil {
		return err
	}

	for {
		delay := period
		s, merr := c.Sensor.Measure(ctx)
		if ctx.Err() != nil {
			logger.Info("channel: stopping")
			return nil
		}
		switch {
		case errors.Is(merr, sensor.ErrTimeout):
			logger.Warn("channel: sensor timeout", "err", merr)
			delay = retry
		case merr != nil:
			return fmt.Errorf("channel %s: measure: %w", c.Name, merr)
		default:
			r := c.Smoother.Observe(s.DistanceCM)
			logger.Debug("channel: reading", "raw_cm", s.DistanceCM, "cm", r.Value, "accepted", r.Accepted)
			events := c.Profile.Step(r.Value, r.Accepted)
			if ctx.Err() != nil {
				logger.Info("channel: stopping")
				return nil
			}
			if err := c.emit(events); err != nil {
				return err
			}
		}
		if clock.Sleep(ctx, delay) != nil {
			logger.Info("channel: stopping")
			return nil
		}
	}
}

func (c *Channel) emit(events []notes.Event) error {
	for _, ev := range events {
		if err := c.Emitter.Emit(ev); err != nil {
			return fmt.Errorf("channel %s: %w", c.Name, err)
		}
		c.held.Apply(ev)
	}
	return nil
}

// silence resets the profile and turns off whatever the receiver actually
// has sounding. A profile's own shutdown events may name a note that never
// got out.
func (c *Channel) silence() error {
	c.Profile.Shutdown()
	return c.emit(c.held.Release())
}

// RunAll runs every channel in its own goroutine and waits for all of them.
func RunAll(ctx context.Context, chans ...*Channel) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, c := range chans {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
