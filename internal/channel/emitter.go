package channel

import (
	"fmt"
	"log/slog"

	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/logging"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/notes"
	"github.com/brendanscheidt/CS370-Pi-Theremin/internal/transport"
)

// Emitter delivers note events downstream. midiout.Emitter and
// ValueEmitter implement it.
type Emitter interface {
	Emit(ev notes.Event) error
	Close() error
}

// ValueEmitter sends ContinuousTone frequencies over a value transport.
// Other events have no value form and are skipped.
type ValueEmitter struct {
	out    transport.Sender
	logger *slog.Logger
}

func NewValueEmitter(out transport.Sender, logger *slog.Logger) *ValueEmitter {
	return &ValueEmitter{out: out, logger: logging.OrDefault(logger)}
}

func (e *ValueEmitter) Emit(ev notes.Event) error {
	if ev.Kind != notes.ContinuousTone {
		e.logger.Debug("values: event has no value form", "event", ev.String())
		return nil
	}
	if err := e.out.Send(ev.Freq); err != nil {
		return fmt.Errorf("values: %w", err)
	}
	e.logger.Debug("values: sent", "hz", transport.FormatValue(ev.Freq))
	return nil
}

func (e *ValueEmitter) Close() error { return e.out.Close() }
