package notes

import "sort"

// Held tracks which notes are sounding on the receiver, as opposed to what a
// Machine intends. Only delivered events should be applied.
type Held struct {
	on map[int]bool
}

// Apply records a delivered event.
func (h *Held) Apply(ev Event) {
	switch ev.Kind {
	case NoteOn:
		if h.on == nil {
			h.on = map[int]bool{}
		}
		h.on[ev.Note] = true
	case NoteOff:
		delete(h.on, ev.Note)
	}
}

func (h *Held) Sounding() []int {
	out := make([]int, 0, len(h.on))
	for n := range h.on {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Release returns a NoteOff for every held note, lowest first.
func (h *Held) Release() []Event {
	var events []Event
	for _, n := range h.Sounding() {
		events = append(events, Off(n))
	}
	return events
}
