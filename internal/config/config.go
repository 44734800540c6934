// Package config loads the therepi YAML configuration. A Config is read once
// at startup and treated as read-only afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/condition"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/notes"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/scale"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/sensor"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/transport"
)

var ErrInvalid = errors.New("config: invalid")

// Mode selects what a channel produces.
type Mode string

const (
	ModeFrequency Mode = "frequency" // continuous tone values over the value transport
	ModeNote      Mode = "note"      // scale-quantized MIDI notes
	ModeBend      Mode = "bend"      // one sustained MIDI note moved by pitch bend
)

const (
	DefaultPeriod     = 100 * time.Millisecond
	DefaultRetryDelay = 20 * time.Millisecond
	DefaultChip       = "gpiochip0"
	DefaultScale      = "a-minor"
	DefaultBendRange  = 2.0
	DefaultBaseNote   = 57 // A3, 220 Hz
)

type Config struct {
	Period     time.Duration      `yaml:"period"`
	RetryDelay time.Duration      `yaml:"retry_delay"`
	Values     transport.Endpoint `yaml:"values"`
	MIDI       MIDI               `yaml:"midi"`
	Channels   []Channel          `yaml:"channels"`
}

// MIDI selects where note and bend channels send. A non-empty Address sends
// MIDI over TCP; otherwise a local output port matching Port is used.
type MIDI struct {
	Port    string   `yaml:"port"`
	Exclude []string `yaml:"exclude"`
	Address string   `yaml:"address"`
}

type GPIO struct {
	Chip    string `yaml:"chip"`
	Trigger int    `yaml:"trigger"`
	Echo    int    `yaml:"echo"`
}

type Smoothing struct {
	Window    int     `yaml:"window"`
	Threshold float64 `yaml:"threshold"`
}

type Bend struct {
	BaseNote  int     `yaml:"base_note"`
	Range     float64 `yaml:"range"`
	Threshold int     `yaml:"threshold"`
}

// Channel is one sensor and what it drives. Smoothing and Bend start from
// their defaults when decoded, so an explicit 0 in the file is kept.
type Channel struct {
	Name        string              `yaml:"name"`
	GPIO        GPIO                `yaml:"gpio"`
	Settle      time.Duration       `yaml:"settle"`
	Timeout     time.Duration       `yaml:"timeout"`
	Range       scale.Range         `yaml:"range"`
	Mode        Mode                `yaml:"mode"`
	Frequency   scale.Continuous    `yaml:"frequency"`
	Scale       string              `yaml:"scale"`
	Notes       []int               `yaml:"notes"`
	Velocity    *scale.Linear       `yaml:"velocity"`
	Smoothing   Smoothing           `yaml:"smoothing"`
	Bend        Bend                `yaml:"bend"`
	MIDIChannel int                 `yaml:"midi_channel"`
	Values      *transport.Endpoint `yaml:"values"`
}

func DefaultSmoothing() Smoothing {
	return Smoothing{Window: condition.DefaultWindow, Threshold: condition.DefaultThreshold}
}

func DefaultBend() Bend {
	return Bend{BaseNote: DefaultBaseNote, Range: DefaultBendRange, Threshold: notes.DefaultBendThreshold}
}

func (ch *Channel) UnmarshalYAML(n *yaml.Node) error {
	type plain Channel
	p := plain{Smoothing: DefaultSmoothing(), Bend: DefaultBend()}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*ch = Channel(p)
	return nil
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default is a single pitch sensor on BCM 23/24 streaming 220-440 Hz, the
// classic sender setup.
func Default() *Config {
	c := &Config{
		Values: transport.Endpoint{Network: "tcp", Address: "127.0.0.1:8080"},
		Channels: []Channel{{
			Name:      "pitch",
			GPIO:      GPIO{Trigger: 23, Echo: 24},
			Range:     scale.Range{Min: 15, Max: 70},
			Mode:      ModeFrequency,
			Frequency: scale.Continuous{MinFreq: 220, MaxFreq: 440},
			Smoothing: DefaultSmoothing(),
			Bend:      DefaultBend(),
		}},
	}
	c.ApplyDefaults()
	return c
}

func (c *Config) ApplyDefaults() {
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Values.Network == "" {
		c.Values.Network = "tcp"
	}
	for i := range c.Channels {
		ch := &c.Channels[i]
		if ch.Name == "" {
			ch.Name = fmt.Sprintf("sensor%d", i+1)
		}
		if ch.GPIO.Chip == "" {
			ch.GPIO.Chip = DefaultChip
		}
		if ch.Settle <= 0 {
			ch.Settle = sensor.DefaultSettle
		}
		if ch.Timeout <= 0 {
			ch.Timeout = sensor.DefaultTimeout
		}
		if ch.Mode == "" {
			ch.Mode = ModeFrequency
		}
		if ch.Scale == "" && len(ch.Notes) == 0 {
			ch.Scale = DefaultScale
		}
		if ch.Smoothing.Window <= 0 {
			ch.Smoothing.Window = condition.DefaultWindow
		}
		if ch.Bend.Range <= 0 {
			ch.Bend.Range = DefaultBendRange
		}
		if ch.Values == nil {
			v := c.Values
			ch.Values = &v
		}
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if len(c.Channels) == 0 {
		bad("no channels configured")
	}
	type lineKey struct {
		chip string
		pin  int
	}
	names := map[string]bool{}
	lines := map[lineKey]string{}
	for _, ch := range c.Channels {
		if names[ch.Name] {
			bad("duplicate channel name %q", ch.Name)
		}
		names[ch.Name] = true

		for _, pin := range []int{ch.GPIO.Trigger, ch.GPIO.Echo} {
			key := lineKey{ch.GPIO.Chip, pin}
			if other, ok := lines[key]; ok {
				bad("channel %q: line %s:%d already used by %q", ch.Name, ch.GPIO.Chip, pin, other)
			}
			lines[key] = ch.Name
		}
		if ch.GPIO.Trigger == ch.GPIO.Echo {
			bad("channel %q: trigger and echo share line %d", ch.Name, ch.GPIO.Trigger)
		}
		if err := ch.Range.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%w: channel %q: %w", ErrInvalid, ch.Name, err))
		}
		if ch.Velocity != nil && (ch.Velocity.OutMin < 0 || ch.Velocity.OutMax > scale.MIDIMax || ch.Velocity.OutMin > ch.Velocity.OutMax) {
			bad("channel %q: velocity must satisfy 0 <= min <= max <= 127", ch.Name)
		}
		if ch.Smoothing.Threshold < 0 {
			bad("channel %q: smoothing threshold %g is negative", ch.Name, ch.Smoothing.Threshold)
		}
		if ch.MIDIChannel < 0 || ch.MIDIChannel > 15 {
			bad("channel %q: midi_channel %d outside 0-15", ch.Name, ch.MIDIChannel)
		}

		switch ch.Mode {
		case ModeFrequency:
			if ch.Frequency.MinFreq <= 0 || ch.Frequency.MaxFreq <= ch.Frequency.MinFreq {
				bad("channel %q: frequency band must satisfy 0 < min < max", ch.Name)
			}
			if ch.Values == nil || ch.Values.Address == "" {
				bad("channel %q: frequency mode needs a values address", ch.Name)
			}
		case ModeNote:
			if _, err := ch.Quantized(); err != nil {
				errs = append(errs, fmt.Errorf("%w: channel %q: %w", ErrInvalid, ch.Name, err))
			}
		case ModeBend:
			if ch.Frequency.MinFreq <= 0 || ch.Frequency.MaxFreq <= ch.Frequency.MinFreq {
				bad("channel %q: bend mode needs a frequency band with 0 < min < max", ch.Name)
			}
			if ch.Bend.BaseNote < 0 || ch.Bend.BaseNote > scale.MIDIMax {
				bad("channel %q: base_note %d outside 0-127", ch.Name, ch.Bend.BaseNote)
			}
			if ch.Bend.Threshold < 0 {
				bad("channel %q: bend threshold %d is negative", ch.Name, ch.Bend.Threshold)
			}
		default:
			bad("channel %q: unknown mode %q", ch.Name, ch.Mode)
		}
	}
	return errors.Join(errs...)
}

// Quantized resolves the channel's note table: explicit notes win over a
// named scale.
func (ch Channel) Quantized() (scale.Quantized, error) {
	if len(ch.Notes) > 0 {
		for _, n := range ch.Notes {
			if n < 0 || n > scale.MIDIMax {
				return scale.Quantized{}, fmt.Errorf("note %d outside 0-127", n)
			}
		}
		return scale.Quantized{Notes: append([]int(nil), ch.Notes...)}, nil
	}
	return scale.Lookup(ch.Scale)
}

// UsesMIDI reports whether the channel emits MIDI rather than values.
func (ch Channel) UsesMIDI() bool { return ch.Mode == ModeNote || ch.Mode == ModeBend }
