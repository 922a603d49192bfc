// SPDX-License-Identifier: MIT
package scale

import (
	"fmt"
	"math"
	"strings"
)

// KeyName returns the tonic of key, e.g. "F#". Out of range keys report "C".
func KeyName(key int) string {
	if key < 0 || key >= Keys {
		return keys[0].name
	}
	return keys[key].name
}

// ModeName returns "Major" for keys 0..11 and "Minor" for 12..23.
func ModeName(key int) string {
	if key >= 12 && key < Keys {
		return "Minor"
	}
	return "Major"
}

var labels = func() (l [Keys]string) {
	for k := range l {
		l[k] = KeyName(k) + " " + ModeName(k)
	}
	return l
}()

// Label returns the display name of key, e.g. "Bb Minor".
func Label(key int) string {
	if key < 0 || key >= Keys {
		key = 0
	}
	return labels[key]
}

// NoteName returns the name of scale degree note (1..9) in key. Notes 8 and
// 9 wrap to degrees 1 and 2. Anything else returns "".
func NoteName(key, note int) string {
	if note < 1 || note > 9 {
		return ""
	}
	if key < 0 || key >= Keys {
		key = 0
	}
	return keys[key].notes[(note-1)%Degrees]
}

// ParseKey finds a key by label ("A minor", "f#", "Bb Major") or numeric
// index. A bare tonic selects the major key.
func ParseKey(s string) (int, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 || len(fields) > 2 {
		return 0, fmt.Errorf("invalid key %q", s)
	}
	var idx int
	if _, err := fmt.Sscanf(fields[0], "%d", &idx); err == nil && len(fields) == 1 {
		if idx < 0 || idx >= Keys {
			return 0, fmt.Errorf("key index %d out of range [0,%d)", idx, Keys)
		}
		return idx, nil
	}
	minor := len(fields) == 2 && (fields[1] == "minor" || fields[1] == "min" || fields[1] == "m")
	if len(fields) == 2 && !minor && fields[1] != "major" && fields[1] != "maj" {
		return 0, fmt.Errorf("invalid mode in key %q", s)
	}
	for i, k := range keys {
		if k.minor == minor && strings.ToLower(k.name) == fields[0] {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchClass returns the equal-tempered name (sharps) and octave nearest to
// freq, e.g. ("A", 4) for 440 Hz. Non-positive frequencies return ("", 0).
func PitchClass(freq float64) (string, int) {
	if !(freq > 0) {
		return "", 0
	}
	midi := int(math.Round(69 + 12*math.Log2(freq/440)))
	if midi < 0 {
		midi = 0
	}
	return pitchClasses[midi%12], midi/12 - 1
}
