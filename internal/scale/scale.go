// SPDX-License-Identifier: MIT

// Package scale holds the musical key tables the pitch engine snaps to.
//
// There are 24 keys: twelve majors followed by their twelve relative natural
// minors, in circle-of-fifths order. Each key owns a Table of seven scale
// degrees for each of ten octave rows. Tables are pure data built once on
// first use and never mutated afterwards, so they are safe to read from any
// goroutine including the audio path.
package scale

import (
	"math"
	"sync"
)

const (
	// Keys is the number of selectable keys.
	Keys = 24
	// Degrees is the number of notes per scale row.
	Degrees = 7
	// Octaves is the number of rows per table.
	Octaves = 10
)

// Table lists the scale frequencies of one key, row by row, ascending
// within each row.
type Table [Degrees * Octaves]float64

// baseFrequencies are the octave-0 pitches C0..B0 in Hz.
var baseFrequencies = [12]float64{
	16.35, 17.32, 18.35, 19.45, 20.60, 21.83, 23.12, 24.50, 25.96, 27.50, 29.14, 30.87,
}

var (
	majorSteps = [Degrees]int{2, 2, 1, 2, 2, 2, 1}
	minorSteps = [Degrees]int{2, 1, 2, 2, 1, 2, 2}
)

type keyInfo struct {
	name  string
	root  int // semitone index into baseFrequencies
	minor bool
	notes [Degrees]string
}

var keys = [Keys]keyInfo{
	{"C", 0, false, [Degrees]string{"C", "D", "E", "F", "G", "A", "B"}},
	{"G", 7, false, [Degrees]string{"G", "A", "B", "C", "D", "E", "F#"}},
	{"D", 2, false, [Degrees]string{"D", "E", "F#", "G", "A", "B", "C#"}},
	{"A", 9, false, [Degrees]string{"A", "B", "C#", "D", "E", "F#", "G#"}},
	{"E", 4, false, [Degrees]string{"E", "F#", "G#", "A", "B", "C#", "D#"}},
	{"B", 11, false, [Degrees]string{"B", "C#", "D#", "E", "F#", "G#", "A#"}},
	{"F#", 6, false, [Degrees]string{"F#", "G#", "A#", "B", "C#", "D#", "E#"}},
	{"C#", 1, false, [Degrees]string{"C#", "D#", "E#", "F#", "G#", "A#", "B#"}},
	{"F", 5, false, [Degrees]string{"F", "G", "A", "Bb", "C", "D", "E"}},
	{"Bb", 10, false, [Degrees]string{"Bb", "C", "D", "Eb", "F", "G", "A"}},
	{"Eb", 3, false, [Degrees]string{"Eb", "F", "G", "Ab", "Bb", "C", "D"}},
	{"Ab", 8, false, [Degrees]string{"Ab", "Bb", "C", "Db", "Eb", "F", "G"}},
	{"A", 9, true, [Degrees]string{"A", "B", "C", "D", "E", "F", "G"}},
	{"E", 4, true, [Degrees]string{"E", "F#", "G", "A", "B", "C", "D"}},
	{"B", 11, true, [Degrees]string{"B", "C#", "D", "E", "F#", "G", "A"}},
	{"F#", 6, true, [Degrees]string{"F#", "G#", "A", "B", "C#", "D", "E"}},
	{"C#", 1, true, [Degrees]string{"C#", "D#", "E", "F#", "G#", "A", "B"}},
	{"G#", 8, true, [Degrees]string{"G#", "A#", "B", "C#", "D#", "E", "F#"}},
	{"D", 2, true, [Degrees]string{"D", "E", "F", "G", "A", "Bb", "C"}},
	{"G", 7, true, [Degrees]string{"G", "A", "Bb", "C", "D", "Eb", "F"}},
	{"C", 0, true, [Degrees]string{"C", "D", "Eb", "F", "G", "Ab", "Bb"}},
	{"F", 5, true, [Degrees]string{"F", "G", "Ab", "Bb", "C", "Db", "Eb"}},
	{"Bb", 10, true, [Degrees]string{"Bb", "C", "Db", "Eb", "F", "Gb", "Ab"}},
	{"Eb", 3, true, [Degrees]string{"Eb", "F", "Gb", "Ab", "Bb", "Cb", "Db"}},
}

var tables = sync.OnceValue(func() *[Keys]Table {
	var all [Keys]Table
	for k, info := range keys {
		steps := majorSteps
		if info.minor {
			steps = minorSteps
		}
		all[k] = build(info.root, steps)
	}
	return &all
})

// build walks the step pattern from root, moving up an octave whenever the
// pitch class wraps past B so every row ascends.
func build(root int, steps [Degrees]int) Table {
	var t Table
	for row := 0; row < Octaves; row++ {
		pc, lift := root, 0
		for d := 0; d < Degrees; d++ {
			t[row*Degrees+d] = baseFrequencies[pc] * math.Ldexp(1, row+lift)
			pc += steps[d]
			if pc >= 12 {
				pc -= 12
				lift++
			}
		}
	}
	return t
}

// ForKey returns the table of key, falling back to C major out of range.
func ForKey(key int) *Table {
	if key < 0 || key >= Keys {
		key = 0
	}
	return &tables()[key]
}

// Frequency looks up an explicit note. note is 1..9 where 8 and 9 continue
// into degrees 1 and 2 of the next row. octave selects a row: 1, 2 and 4
// map to three consecutive rows, which start two rows higher unless vocoder
// is set. Any other octave, an out-of-range key or note yields 0.
func Frequency(key, note, octave int, vocoder bool) float64 {
	if key < 0 || key >= Keys || note < 1 || note > 9 {
		return 0
	}
	offset := 2
	if vocoder {
		offset = 0
	}
	var row int
	switch octave {
	case 1:
		row = 1 + offset
	case 2:
		row = 2 + offset
	case 4:
		row = 3 + offset
	default:
		return 0
	}
	return tables()[key][row*Degrees+note-1]
}

// TargetFrequency is the explicit-note lookup used for pitch correction.
func TargetFrequency(key, note, octave int) float64 {
	return Frequency(key, note, octave, false)
}

// NearestInScale returns the entry of table closest to freq. The first entry
// wins ties. An empty table yields 0.
func NearestInScale(freq float64, table []float64) float64 {
	if len(table) == 0 {
		return 0
	}
	nearest := table[0]
	minDiff := math.Abs(freq - nearest)
	for _, f := range table[1:] {
		if d := math.Abs(freq - f); d < minDiff {
			minDiff = d
			nearest = f
		}
	}
	return nearest
}

// NearestNoteFrequency returns the closest pitch across all 24 tables.
func NearestNoteFrequency(freq float64) float64 {
	all := tables()
	nearest := all[0][0]
	minDiff := math.Abs(freq - nearest)
	for k := range all {
		for _, f := range all[k] {
			if d := math.Abs(freq - f); d < minDiff {
				minDiff = d
				nearest = f
			}
		}
	}
	return nearest
}
