package notes

import "github.com/brendanscheidt/CS370-Pi-Theremin/internal/scale"

// DefaultBendThreshold is the minimum bend change (of 16384) worth sending.
const DefaultBendThreshold = 10

// BendMachine holds one sustained note and moves it with pitch bend. Small
// bend changes are suppressed so the event rate does not follow the polling
// rate.
type BendMachine struct {
	base      int
	velocity  int
	threshold int

	last    int
	started bool
}

func NewBendMachine(baseNote, velocity, threshold int) *BendMachine {
	if threshold < 0 {
		threshold = DefaultBendThreshold
	}
	return &BendMachine{base: baseNote, velocity: velocity, threshold: threshold, last: scale.BendCenter}
}

// Start sounds the base note with the bend centred.
func (b *BendMachine) Start() []Event {
	if b.started {
		return nil
	}
	b.started = true
	b.last = scale.BendCenter
	return []Event{On(b.base, b.velocity)}
}

// Step emits a PitchBend only when it differs from the last sent value by
// more than the threshold. It starts the note first if needed.
func (b *BendMachine) Step(bend int) []Event {
	events := b.Start()
	d := bend - b.last
	if d < 0 {
		d = -d
	}
	if d > b.threshold {
		b.last = bend
		events = append(events, Bend(bend))
	}
	return events
}

func (b *BendMachine) Last() int { return b.last }

func (b *BendMachine) Shutdown() []Event {
	if !b.started {
		return nil
	}
	b.started = false
	return []Event{Off(b.base)}
}

// ToneTracker re-sends the latest accepted frequency every cycle.
type ToneTracker struct {
	freq float64
	has  bool
}

// Step records freq when fresh and returns the current tone, if any.
func (t *ToneTracker) Step(freq float64, fresh bool) []Event {
	if fresh {
		t.freq, t.has = freq, true
	}
	if !t.has {
		return nil
	}
	return []Event{Tone(t.freq)}
}
