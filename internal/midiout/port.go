package midiout

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
)

// DefaultExcluded lists virtual/system ports that are never auto-connected.
var DefaultExcluded = []string{"Midi Through", "Through Port", "Dummy"}

const DefaultRescanInterval = time.Second

// PortConfig selects the output port.
type PortConfig struct {
	// Preferred patterns are matched case-insensitively, in order. With no
	// match, a single remaining port is used.
	Preferred []string
	Excluded  []string
	Rescan    time.Duration
}

type outDriver interface {
	Outs() ([]drivers.Out, error)
	Close() error
}

// Port maintains a connection to the preferred MIDI output. It handles
// hot-plug (new device appears) and hot-unplug (device disappears); while no
// device is connected, messages are dropped.
type Port struct {
	mu           sync.Mutex
	drv          outDriver
	out          drivers.Out
	connected    bool
	selectedName string
	lastRescanAt time.Time

	cfg    PortConfig
	logger *slog.Logger
}

// OpenPort initialises the rtmidi driver and connects if a suitable output is
// present. Call Close when done.
func OpenPort(cfg PortConfig, logger *slog.Logger) (*Port, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	p := newPort(drv, cfg, logger)
	p.Tick()
	return p, nil
}

func newPort(drv outDriver, cfg PortConfig, logger *slog.Logger) *Port {
	if cfg.Excluded == nil {
		cfg.Excluded = DefaultExcluded
	}
	if cfg.Rescan <= 0 {
		cfg.Rescan = DefaultRescanInterval
	}
	return &Port{drv: drv, cfg: cfg, logger: logging.OrDefault(logger)}
}

// Connected reports the selected device, if any.
func (p *Port) Connected() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectedName, p.connected
}

// Tick scans for devices at most once per rescan interval, connects to a
// preferred one, and detects disappearances.
func (p *Port) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tick(time.Now())
}

func (p *Port) tick(now time.Time) {
	if !p.lastRescanAt.IsZero() && now.Sub(p.lastRescanAt) < p.cfg.Rescan {
		return
	}
	p.lastRescanAt = now

	outputs := p.listOutputs()

	if p.connected {
		for _, o := range outputs {
			if o.String() == p.selectedName {
				return
			}
		}
		p.logger.Warn("midi: device disappeared", "device", p.selectedName)
		p.closeConn()
		p.lastRescanAt = time.Time{}
	}

	if len(outputs) == 0 {
		return
	}
	cand, ok := p.pickPreferred(outputs)
	if !ok {
		p.logger.Debug("midi: no preferred output found")
		return
	}
	if err := cand.Open(); err != nil {
		p.logger.Error("midi: connect failed", "device", cand.String(), "err", err)
		return
	}
	p.out = cand
	p.connected = true
	p.selectedName = cand.String()
	p.logger.Info("midi: connected", "device", p.selectedName)
}

// Send writes msg to the connected device. Without a device the message is
// dropped. A write failure drops the device so the next Send rescans.
func (p *Port) Send(msg midi.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		p.tick(time.Now())
	}
	if !p.connected {
		p.logger.Debug("midi: no output connected, dropping", "msg", msg.String())
		return nil
	}
	if err := p.out.Send(msg.Bytes()); err != nil {
		p.logger.Warn("midi: send failed", "device", p.selectedName, "err", err)
		p.closeConn()
		p.lastRescanAt = time.Time{}
		return fmt.Errorf("midi: send to %s: %w", p.selectedName, err)
	}
	return nil
}

// Close shuts down the active connection and the driver.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeConn()
	return p.drv.Close()
}

func (p *Port) listOutputs() []drivers.Out {
	outs, err := p.drv.Outs()
	if err != nil {
		p.logger.Error("midi: list outputs failed", "err", err)
		return nil
	}
	var kept []drivers.Out
	var names []string
	for _, o := range outs {
		name := o.String()
		if matchesAny(name, p.cfg.Excluded) {
			p.logger.Debug("midi: output excluded", "device", name)
			continue
		}
		kept = append(kept, o)
		names = append(names, name)
	}
	p.logger.Debug("midi: outputs found", "count", len(kept), "devices", strings.Join(names, ", "))
	return kept
}

func (p *Port) pickPreferred(outputs []drivers.Out) (drivers.Out, bool) {
	for _, pat := range p.cfg.Preferred {
		for _, o := range outputs {
			if containsCI(o.String(), pat) {
				return o, true
			}
		}
	}
	if len(outputs) == 1 {
		return outputs[0], true
	}
	return nil, false
}

func (p *Port) closeConn() {
	if p.out != nil {
		_ = p.out.Close()
		p.out = nil
	}
	p.connected = false
	p.selectedName = ""
}

func matchesAny(s string, patterns []string) bool {
	for _, pat := range patterns {
		if containsCI(s, pat) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
