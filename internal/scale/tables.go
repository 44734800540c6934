package scale

import (
	"fmt"
	"slices"
	"sort"
)

// Scales are the built-in note tables, one octave each unless noted.
var Scales = map[string][]int{
	"a-minor":            {57, 59, 60, 62, 64, 65, 67, 69},
	"c-major":            {60, 62, 64, 65, 67, 69, 71, 72},
	"a-minor-pentatonic": {57, 60, 62, 64, 67, 69},
	"chromatic":          {57, 58, 59, 60, 61, 62, 63, 64, 65, 66, 67, 68, 69},
}

// Lookup returns a copy of the named scale.
func Lookup(name string) (Quantized, error) {
	notes, ok := Scales[name]
	if !ok {
		names := make([]string, 0, len(Scales))
		for k := range Scales {
			names = append(names, k)
		}
		sort.Strings(names)
		return Quantized{}, fmt.Errorf("scale: unknown scale %q (have %v)", name, names)
	}
	return Quantized{Notes: slices.Clone(notes)}, nil
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName renders a MIDI note as e.g. "A3".
func PitchName(pitch int) string {
	if pitch < 0 {
		return fmt.Sprintf("?%d", pitch)
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], (pitch/12)-1)
}
