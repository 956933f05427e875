package bridge

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/peoplecounter/udpbridge/internal/protocol"
	"go.uber.org/zap"
)

// Sender transmits one encoded command per UDP datagram. The socket is
// unbound (ephemeral local port) and never connected to a peer, so the
// target can change between calls; the target address is re-resolved on
// every Send. Sends are synchronous and never block past the OS send
// buffer: a full buffer fails the call instead of suspending it.
type Sender struct {
	logger *zap.SugaredLogger

	mu   sync.Mutex
	conn *net.UDPConn
}

// NewSender creates a disconnected sender. The socket is created lazily by
// Connect or the first Send.
func NewSender(logger *zap.SugaredLogger) *Sender {
	return &Sender{logger: logger}
}

// Connect validates the target host and creates the outbound socket if one
// does not exist yet. Idempotent while connected.
func (s *Sender) Connect(targetHost string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	if _, err := net.ResolveUDPAddr("udp", net.JoinHostPort(targetHost, "0")); err != nil {
		return &BindError{Addr: targetHost, Err: err}
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return &BindError{Addr: targetHost, Err: err}
	}
	if err := conn.SetWriteBuffer(socketBufferSize); err != nil {
		s.logger.Warnf("Failed to grow send buffer: %v", err)
	}

	s.conn = conn
	s.logger.Infof("UDP sender connected, local %s", conn.LocalAddr())
	return nil
}

// Disconnect closes the socket if open. Always succeeds.
func (s *Sender) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.logger.Info("UDP sender disconnected")
	}
}

// IsConnected reports whether the outbound socket is open.
func (s *Sender) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send encodes cmd and transmits exactly one datagram to targetHost:
// targetPort, auto-connecting first if needed. A partial write counts as a
// failure. Failures are reported, never retried.
func (s *Sender) Send(cmd protocol.Command, targetHost string, targetPort int) error {
	if err := s.Connect(targetHost); err != nil {
		return err
	}

	target := net.JoinHostPort(targetHost, strconv.Itoa(targetPort))
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return &SendError{Target: target, Err: err}
	}

	payload := protocol.Encode(cmd)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return &SendError{Target: target, Err: errors.New("sender disconnected")}
	}

	n, err := conn.WriteToUDP(payload, addr)
	if err != nil {
		return &SendError{Target: target, Err: err}
	}
	if n != len(payload) {
		return &SendError{Target: target, Err: fmt.Errorf("short write: %d of %d bytes", n, len(payload))}
	}
	return nil
}
