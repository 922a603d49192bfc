package udp

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"vocalfx/internal/log"
)

// UDPSender handles sending data packets over UDP.
type UDPSender struct {
	conn   *net.UDPConn
	mu     sync.Mutex // Protects conn during Close
	closed bool
	log    *log.Logger

	packets atomic.Uint64
	bytes   atomic.Uint64
	errors  atomic.Uint64
}

// NewUDPSender creates a new UDPSender targeting the specified address.
// The address should be in the format "host:port", e.g., "127.0.0.1:9090".
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	// No local bind is needed for sending.
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	l := log.Named("udp")
	l.Infof("sending to %s from %s", conn.RemoteAddr(), conn.LocalAddr())

	return &UDPSender{conn: conn, log: l}, nil
}

// Send transmits the given byte slice as a UDP packet.
// It is safe for concurrent use, although typically called sequentially by the publisher.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("UDP sender is closed")
	}
	n, err := s.conn.Write(data)
	s.mu.Unlock()

	if err != nil {
		// Receivers come and go; a refused port is not worth more than debug.
		s.errors.Add(1)
		s.log.Debugf("error sending packet: %v", err)
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	s.packets.Add(1)
	s.bytes.Add(uint64(n))
	return nil
}

// Counters returns packets sent, bytes sent and send errors.
func (s *UDPSender) Counters() (packets, bytes, errors uint64) {
	return s.packets.Load(), s.bytes.Load(), s.errors.Load()
}

// Close closes the underlying UDP connection.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.conn == nil {
		return nil
	}
	s.log.Infof("closing connection to %s after %d packets", s.conn.RemoteAddr(), s.packets.Load())
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

// Ensure UDPSender satisfies the io.Closer interface.
var _ interface{ Close() error } = (*UDPSender)(nil)
