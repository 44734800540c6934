package sensor

import "time"

// SpeedOfSoundCMPerS is the speed of sound in dry air at about 20°C.
const SpeedOfSoundCMPerS = 34300.0

// Sample is one time-of-flight measurement. It is immutable once built.
type Sample struct {
	PulseStart time.Time
	PulseEnd   time.Time
	DistanceCM float64
}

// NewSample derives the distance for an echo pulse. An end before start is
// treated as a zero-length pulse so PulseEnd >= PulseStart always holds.
func NewSample(start, end time.Time) Sample {
	if end.Before(start) {
		end = start
	}
	return Sample{
		PulseStart: start,
		PulseEnd:   end,
		DistanceCM: Distance(end.Sub(start)),
	}
}

// Duration is the width of the echo pulse.
func (s Sample) Duration() time.Duration { return s.PulseEnd.Sub(s.PulseStart) }

// Distance converts a round-trip echo duration to centimetres.
func Distance(roundTrip time.Duration) float64 {
	return roundTrip.Seconds() * SpeedOfSoundCMPerS / 2
}
