// Package sensor drives an HC-SR04 style ultrasonic rangefinder over a
// trigger/echo line pair.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
)

const (
	DefaultSettle  = 100 * time.Millisecond
	TriggerPulse   = 10 * time.Microsecond
	DefaultTimeout = 50 * time.Millisecond
)

// ErrTimeout matches every TimeoutError via errors.Is.
var ErrTimeout = errors.New("sensor: echo timeout")

// Edge names the echo transition a measurement was waiting for.
type Edge int

const (
	RisingEdge Edge = iota
	FallingEdge
)

func (e Edge) String() string {
	switch e {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	}
	return "unknown"
}

// TimeoutError reports an echo edge that never arrived. It is retryable.
type TimeoutError struct {
	Edge   Edge
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("sensor: no %s echo edge within %s", e.Edge, e.Waited)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// OutputLine is a digital output, e.g. a requested gpiocdev line.
type OutputLine interface {
	SetValue(value int) error
}

// InputLine is a digital input.
type InputLine interface {
	Value() (int, error)
}

// Clock abstracts time so the protocol can be driven without hardware.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Driver owns one trigger/echo pair. Drivers with distinct lines can be used
// concurrently; a single Driver must not be.
type Driver struct {
	trig   OutputLine
	echo   InputLine
	clock  Clock
	logger *slog.Logger

	settle  time.Duration
	pulse   time.Duration
	timeout time.Duration

	closed bool
}

// Option configures a Driver.
type Option func(*Driver)

func WithClock(c Clock) Option              { return func(d *Driver) { d.clock = c } }
func WithLogger(l *slog.Logger) Option      { return func(d *Driver) { d.logger = l } }
func WithSettle(s time.Duration) Option     { return func(d *Driver) { d.settle = s } }
func WithTimeout(t time.Duration) Option    { return func(d *Driver) { d.timeout = t } }
func WithPulseWidth(p time.Duration) Option { return func(d *Driver) { d.pulse = p } }

// New builds a Driver over the given lines. Lines that implement io.Closer
// are released by Close.
func New(trig OutputLine, echo InputLine, opts ...Option) *Driver {
	d := &Driver{
		trig:    trig,
		echo:    echo,
		clock:   SystemClock,
		settle:  DefaultSettle,
		pulse:   TriggerPulse,
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(d)
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	d.logger = logging.OrDefault(d.logger)
	return d
}

// Measure runs one trigger/echo cycle. Both echo polls are bounded by the
// driver timeout; a missing edge yields a *TimeoutError.
func (d *Driver) Measure(ctx context.Context) (Sample, error) {
	if err := d.trig.SetValue(0); err != nil {
		return Sample{}, fmt.Errorf("sensor: drive trigger low: %w", err)
	}
	if err := d.clock.Sleep(ctx, d.settle); err != nil {
		return Sample{}, err
	}
	if err := d.trig.SetValue(1); err != nil {
		return Sample{}, fmt.Errorf("sensor: drive trigger high: %w", err)
	}
	if err := d.clock.Sleep(ctx, d.pulse); err != nil {
		_ = d.trig.SetValue(0)
		return Sample{}, err
	}
	if err := d.trig.SetValue(0); err != nil {
		return Sample{}, fmt.Errorf("sensor: end trigger pulse: %w", err)
	}

	start, err := d.waitFor(1, RisingEdge)
	if err != nil {
		return Sample{}, err
	}
	end, err := d.waitFor(0, FallingEdge)
	if err != nil {
		return Sample{}, err
	}

	s := NewSample(start, end)
	d.logger.Debug("sensor: measured", "distance_cm", s.DistanceCM, "pulse", s.Duration())
	return s, nil
}

func (d *Driver) waitFor(level int, edge Edge) (time.Time, error) {
	begin := d.clock.Now()
	deadline := begin.Add(d.timeout)
	for {
		v, err := d.echo.Value()
		if err != nil {
			return time.Time{}, fmt.Errorf("sensor: read echo: %w", err)
		}
		now := d.clock.Now()
		if v == level {
			return now, nil
		}
		if !now.Before(deadline) {
			return time.Time{}, &TimeoutError{Edge: edge, Waited: now.Sub(begin)}
		}
	}
}

// Close releases the line handles. It is safe to call more than once.
func (d *Driver) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	var errs []error
	if c, ok := d.trig.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := d.echo.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
