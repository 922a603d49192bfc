package transport

import (
	"sync/atomic"

	"vocalfx/internal/log"
)

// LoggingTransport implements the Transport interface by logging a one-line
// summary of each update at debug level.
type LoggingTransport struct {
	log  *log.Logger
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	lt := &LoggingTransport{log: log.Named("telemetry")}
	lt.log.Infof("logging telemetry at debug level")
	return lt
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	lt.sent.Add(1)
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	switch u := data.(type) {
	case Update:
		t := u.Telemetry
		lt.log.Debugf("frame %d %s: %.1f Hz -> %.1f Hz (%s%d) ratio %.3f level %.3f dropped %d",
			t.Frame, t.Mode, t.Detected, t.Target, t.Note, t.Octave, t.Ratio, t.Level, u.Stats.Dropped())
	default:
		lt.log.Debugf("received (%T): %+v", data, data)
	}
	return nil
}

// Sent returns how many updates were received.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	lt.log.Debugf("closed after %d updates", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
