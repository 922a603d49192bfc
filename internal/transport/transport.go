// SPDX-License-Identifier: MIT

// Package transport publishes engine telemetry to observers: WebSocket
// clients, UDP listeners and the log.
package transport

import (
	"context"
	"errors"
	"time"

	"vocalfx/internal/log"
	"vocalfx/internal/stream"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Source is anything that exposes the latest frame and counters, i.e. a
// stream.Stream or stream.Controller.
type Source interface {
	Telemetry(withSpectrum bool) stream.Telemetry
	Stats() *stream.Stats
}

// Update is the message every transport receives.
type Update struct {
	Time      time.Time            `json:"time"`
	Telemetry stream.Telemetry     `json:"telemetry"`
	Stats     stream.StatsSnapshot `json:"stats"`
}

// NewUpdate captures src now.
func NewUpdate(src Source, withSpectrum bool) Update {
	return Update{
		Time:      time.Now(),
		Telemetry: src.Telemetry(withSpectrum),
		Stats:     src.Stats().Snapshot(),
	}
}

// Broadcaster sends an Update to every target at a fixed interval.
type Broadcaster struct {
	src      Source
	targets  []Transport
	interval time.Duration
	spectrum bool
	log      *log.Logger
}

// NewBroadcaster creates a broadcaster. Intervals <= 0 default to 33ms.
func NewBroadcaster(src Source, interval time.Duration, withSpectrum bool, targets ...Transport) *Broadcaster {
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	return &Broadcaster{
		src:      src,
		targets:  targets,
		interval: interval,
		spectrum: withSpectrum,
		log:      log.Named("broadcast"),
	}
}

// Run broadcasts until ctx is done, then closes every target.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	var lastFrame uint64
	for {
		select {
		case <-ctx.Done():
			return b.close()
		case <-ticker.C:
		}
		u := NewUpdate(b.src, b.spectrum)
		// Nothing new since the last tick.
		if u.Telemetry.Frame == lastFrame && lastFrame != 0 {
			continue
		}
		lastFrame = u.Telemetry.Frame
		b.Publish(u)
	}
}

// Publish sends u to every target, logging failures.
func (b *Broadcaster) Publish(u Update) {
	for _, t := range b.targets {
		if err := t.Send(u); err != nil {
			b.log.Debugf("send failed: %v", err)
		}
	}
}

func (b *Broadcaster) close() error {
	var errs []error
	for _, t := range b.targets {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}
