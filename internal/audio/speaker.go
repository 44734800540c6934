package audio

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
)

// Speaker plays tones on the default sound device through beep.
type Speaker struct {
	sr     beep.SampleRate
	amp    float64
	logger *slog.Logger
}

// NewSpeaker initialises the speaker with a 50 ms buffer. Only one Speaker
// may exist per process.
func NewSpeaker(sampleRate int, logger *slog.Logger) (*Speaker, error) {
	logger = logging.OrDefault(logger)
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/20)); err != nil {
		return nil, fmt.Errorf("audio: init speaker: %w", err)
	}
	logger.Info("audio: initialized", "sample_rate", sampleRate)
	return &Speaker{sr: sr, amp: DefaultAmplitude, logger: logger}, nil
}

func (s *Speaker) PlayTone(freq float64, d time.Duration) {
	st, ok := ToneStreamer(s.sr, freq, d, s.amp)
	if !ok {
		s.logger.Debug("audio: tone skipped", "freq", freq, "duration", d)
		return
	}
	speaker.Play(st)
}

func (s *Speaker) Close() error {
	speaker.Close()
	return nil
}
