// Package audio renders the received control values as sound.
package audio

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
)

const (
	DefaultSampleRate   = 44100
	DefaultAmplitude    = 0.5
	DefaultToneDuration = 50 * time.Millisecond
)

// Player renders a tone. PlayTone does not wait for playback to finish.
type Player interface {
	PlayTone(freq float64, d time.Duration)
}

// ToneStreamer streams d of a sine tone at amplitude amp, the same on both
// channels. It reports false for tones that cannot be rendered: no duration,
// or a frequency at or above half the sample rate.
func ToneStreamer(sr beep.SampleRate, freq float64, d time.Duration, amp float64) (beep.Streamer, bool) {
	n := sr.N(d)
	if n <= 0 || freq <= 0 {
		return nil, false
	}
	tone, err := generators.SineTone(sr, freq)
	if err != nil {
		return nil, false
	}
	return &effects.Gain{Streamer: beep.Take(n, tone), Gain: amp - 1}, true
}

// Sine renders ToneStreamer into mono samples.
func Sine(sampleRate int, freq float64, d time.Duration, amp float64) []float64 {
	st, ok := ToneStreamer(beep.SampleRate(sampleRate), freq, d, amp)
	if !ok {
		return nil
	}
	out := make([]float64, 0, beep.SampleRate(sampleRate).N(d))
	buf := make([][2]float64, 512)
	for {
		n, more := st.Stream(buf)
		for _, s := range buf[:n] {
			out = append(out, s[0])
		}
		if !more {
			return out
		}
	}
}

type tee []Player

func (t tee) PlayTone(freq float64, d time.Duration) {
	for _, p := range t {
		p.PlayTone(freq, d)
	}
}

// Tee plays every tone on all players.
func Tee(players ...Player) Player { return tee(players) }
