// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"sync"
	"time"

	"vocalfx/internal/log"
	"vocalfx/internal/transport"
)

// PacketSender is the part of UDPSender the publisher uses.
type PacketSender interface {
	Send(data []byte) error
	Close() error
}

// UDPPublisher periodically fetches the latest telemetry, packs it into the
// binary layout described in packet.go and sends it over UDP. It runs in a
// separate goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   PacketSender
	src      transport.Source
	interval time.Duration
	spectrum bool // include magnitudes
	log      *log.Logger

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.
	lastFrame   uint64
	packet      []byte // reused between packets
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender PacketSender, src transport.Source, withSpectrum bool) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if src == nil {
		return nil, fmt.Errorf("UDPPublisher: telemetry source cannot be nil")
	}

	l := log.Named("udp")
	if interval <= 0 {
		interval = 16 * time.Millisecond // Default to ~60Hz if invalid
		l.Warnf("invalid publish interval, defaulting to %s", interval)
	}
	l.Infof("publishing every %s (spectrum: %v)", interval, withSpectrum)

	return &UDPPublisher{
		sender:   sender,
		src:      src,
		interval: interval,
		spectrum: withSpectrum,
		log:      l,
		packet:   make([]byte, 0, 4096),
	}, nil
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		p.log.Warnf("Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture local variables for the goroutine to avoid data races on p.ticker/p.doneChan
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.Publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debugf("publisher stopped after %d packets", p.sequenceNum)
	return nil
}

// Publish builds and sends one packet if a new frame is available. It
// reports whether a packet was sent. Start calls it on every tick.
func (p *UDPPublisher) Publish() bool {
	t := p.src.Telemetry(p.spectrum)
	if t.Frame == 0 || t.Frame == p.lastFrame {
		return false
	}
	p.lastFrame = t.Frame

	p.sequenceNum++
	p.packet = AppendPacket(p.packet[:0], p.sequenceNum, time.Now().UnixNano(), &t)

	// Errors are logged and counted by the sender.
	if err := p.sender.Send(p.packet); err != nil {
		return false
	}
	return true
}

// Close stops the publisher and closes the sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

// Ensure UDPPublisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*UDPPublisher)(nil)
