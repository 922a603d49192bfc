// SPDX-License-Identifier: MIT
package stream

import "sync/atomic"

// Stats counts stream events. Every field is updated atomically, so it can
// be read from any goroutine while audio is running.
type Stats struct {
	Samples            atomic.Uint64 // samples through the producer
	Hops               atomic.Uint64 // hop boundaries reached
	Frames             atomic.Uint64 // frames processed and written
	Overruns           atomic.Uint64 // hops dropped because the job queue was full
	LateFrames         atomic.Uint64 // frames finished after their output deadline
	SkippedCorrections atomic.Uint64 // frames rendered without a new pitch target
	Errors             atomic.Uint64 // frames the processor rejected
	BypassedSamples    atomic.Uint64 // samples replaced by pass-through
}

// StatsSnapshot is a plain copy of Stats.
type StatsSnapshot struct {
	Samples            uint64 `json:"samples"`
	Hops               uint64 `json:"hops"`
	Frames             uint64 `json:"frames"`
	Overruns           uint64 `json:"overruns"`
	LateFrames         uint64 `json:"late_frames"`
	SkippedCorrections uint64 `json:"skipped_corrections"`
	Errors             uint64 `json:"errors"`
	BypassedSamples    uint64 `json:"bypassed_samples"`
}

// Snapshot loads every counter.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Samples:            s.Samples.Load(),
		Hops:               s.Hops.Load(),
		Frames:             s.Frames.Load(),
		Overruns:           s.Overruns.Load(),
		LateFrames:         s.LateFrames.Load(),
		SkippedCorrections: s.SkippedCorrections.Load(),
		Errors:             s.Errors.Load(),
		BypassedSamples:    s.BypassedSamples.Load(),
	}
}

// Dropped is the number of frames that never reached the output.
func (s StatsSnapshot) Dropped() uint64 { return s.Overruns + s.LateFrames }
