package sensor

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every Now call and by d on every Sleep.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

type fakeTrigger struct {
	values []int
	closed int
}

func (f *fakeTrigger) SetValue(v int) error {
	f.values = append(f.values, v)
	return nil
}

func (f *fakeTrigger) Close() error {
	f.closed++
	return nil
}

// fakeEcho is high while the clock is inside [rise, fall).
type fakeEcho struct {
	clock      *fakeClock
	rise, fall time.Time
	err        error
	closed     int
}

func (f *fakeEcho) Value() (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	t := f.clock.now
	if !t.Before(f.rise) && t.Before(f.fall) {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeEcho) Close() error {
	f.closed++
	return nil
}

func newRig(step time.Duration) (*fakeClock, *fakeTrigger, *fakeEcho) {
	clock := &fakeClock{now: time.Unix(1700000000, 0), step: step}
	return clock, &fakeTrigger{}, &fakeEcho{clock: clock}
}

func TestMeasureDistance(t *testing.T) {
	clock, trig, echo := newRig(time.Microsecond)
	origin := clock.now
	echo.rise = origin.Add(DefaultSettle + TriggerPulse + time.Millisecond)
	echo.fall = echo.rise.Add(2 * time.Millisecond)

	d := New(trig, echo, WithClock(clock))
	s, err := d.Measure(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 0}, trig.values)
	assert.False(t, s.PulseEnd.Before(s.PulseStart))
	assert.InDelta(t, 34.3, s.DistanceCM, 0.05)
	assert.InDelta(t, Distance(s.Duration()), s.DistanceCM, 1e-9)
}

func TestMeasureNoRisingEdge(t *testing.T) {
	clock, trig, echo := newRig(time.Millisecond)
	echo.rise = clock.now.Add(time.Hour)
	echo.fall = echo.rise

	d := New(trig, echo, WithClock(clock), WithTimeout(50*time.Millisecond))
	_, err := d.Measure(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, RisingEdge, te.Edge)
	assert.GreaterOrEqual(t, te.Waited, 50*time.Millisecond)
	assert.Contains(t, err.Error(), "rising")
}

func TestMeasureNoFallingEdge(t *testing.T) {
	clock, trig, echo := newRig(time.Millisecond)
	echo.rise = clock.now
	echo.fall = clock.now.Add(time.Hour)

	d := New(trig, echo, WithClock(clock), WithSettle(0))
	_, err := d.Measure(context.Background())

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, FallingEdge, te.Edge)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestMeasureReadErrorIsNotTimeout(t *testing.T) {
	clock, trig, echo := newRig(time.Microsecond)
	echo.err = errors.New("line gone")

	_, err := New(trig, echo, WithClock(clock)).Measure(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "line gone")
}

func TestMeasureCancelled(t *testing.T) {
	clock, trig, echo := newRig(time.Microsecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(trig, echo, WithClock(clock)).Measure(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSystemClockSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := SystemClock.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDistanceFormula(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	base := time.Unix(0, 0)
	for i := 0; i < 200; i++ {
		width := time.Duration(r.Int63n(int64(40 * time.Millisecond)))
		s := NewSample(base, base.Add(width))
		want := width.Seconds() * 34300 / 2
		assert.InDelta(t, want, s.DistanceCM, 1e-9)
	}
}

func TestNewSampleOrdersPulse(t *testing.T) {
	now := time.Now()
	s := NewSample(now, now.Add(-time.Millisecond))
	assert.Equal(t, s.PulseStart, s.PulseEnd)
	assert.Zero(t, s.DistanceCM)
}

func TestCloseReleasesLinesOnce(t *testing.T) {
	_, trig, echo := newRig(time.Microsecond)
	d := New(trig, echo)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, trig.closed)
	assert.Equal(t, 1, echo.closed)
}
