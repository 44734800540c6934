package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
)

const (
	recorderBitDepth = 16
	wavFormatPCM     = 1
	maxInt16         = 32767.0
)

// Recorder appends every tone to a 16-bit mono WAV file instead of playing
// it. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	enc    *wav.Encoder
	sr     int
	amp    float64
	frames int
	err    error
	logger *slog.Logger
}

func NewRecorder(path string, sampleRate int, logger *slog.Logger) (*Recorder, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create %s: %w", path, err)
	}
	return &Recorder{
		file:   f,
		enc:    wav.NewEncoder(f, sampleRate, recorderBitDepth, 1, wavFormatPCM),
		sr:     sampleRate,
		amp:    DefaultAmplitude,
		logger: logging.OrDefault(logger),
	}, nil
}

func (r *Recorder) PlayTone(freq float64, d time.Duration) {
	samples := Sine(r.sr, freq, d, r.amp)
	if len(samples) == 0 {
		return
	}
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(s * maxInt16))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: r.sr},
		Data:           data,
		SourceBitDepth: recorderBitDepth,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if err := r.enc.Write(buf); err != nil {
		r.err = fmt.Errorf("audio: write wav: %w", err)
		r.logger.Error("audio: recorder failed", "err", err)
		return
	}
	r.frames += len(data)
}

// Frames is the number of samples written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalises the WAV header and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.err, r.enc.Close(), r.file.Close())
}
