package bridge

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/peoplecounter/udpbridge/internal/protocol"
	"go.uber.org/zap"
)

const (
	// socketBufferSize sizes the OS receive/send buffers so datagram bursts
	// survive a briefly stalled consumer.
	socketBufferSize = 2 * 1024 * 1024

	// pollInterval bounds how long a Stop request can go unobserved by the
	// receive loop.
	pollInterval = 2 * time.Millisecond

	// handoffQueueDepth is the capacity of the channel carrying decoded
	// packets from the network goroutine to the dispatch goroutine.
	handoffQueueDepth = 256

	// maxDatagramSize covers the largest payload a single UDP datagram can
	// carry.
	maxDatagramSize = 65535
)

// Receiver owns a bound UDP socket and a background goroutine that decodes
// inbound snapshot datagrams. Decoded packets are handed off in arrival
// order through the channel returned by Packets; nothing is ever delivered
// from the network goroutine itself.
type Receiver struct {
	logger     *zap.SugaredLogger
	logPackets bool

	mu      sync.Mutex
	conn    *net.UDPConn
	stop    chan struct{}
	packets chan *protocol.SnapshotPacket
	running bool

	wg sync.WaitGroup
}

// NewReceiver creates a stopped receiver. Call Start to bind the socket.
func NewReceiver(logger *zap.SugaredLogger, logPackets bool) *Receiver {
	return &Receiver{
		logger:     logger,
		logPackets: logPackets,
	}
}

// Start binds listenAddr:port and launches the receive loop. It is
// idempotent: starting a running receiver returns nil without touching the
// existing socket. A BindError leaves the receiver stopped.
func (r *Receiver) Start(listenAddr string, port int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	// Reap a loop that terminated on a socket error without an intervening
	// Stop, so restarting after a failure works.
	if r.conn != nil {
		r.conn.Close()
		r.wg.Wait()
		r.conn = nil
	}

	ip := net.ParseIP(listenAddr)
	if ip == nil {
		return &BindError{Addr: listenAddr, Err: errors.New("invalid listen address")}
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		return &BindError{Addr: listenAddr, Err: err}
	}
	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		r.logger.Warnf("Failed to grow receive buffer: %v", err)
	}

	r.conn = conn
	r.stop = make(chan struct{})
	r.packets = make(chan *protocol.SnapshotPacket, handoffQueueDepth)
	r.running = true

	r.wg.Add(1)
	go r.receiveLoop(conn, r.stop, r.packets)

	r.logger.Infof("UDP receiver started on %s", conn.LocalAddr())
	return nil
}

// Stop signals the receive loop, joins it, and closes the socket. Safe to
// call repeatedly and on a never-started receiver. When Stop returns, the
// packet channel has been closed and the network goroutine is gone.
func (r *Receiver) Stop() {
	r.mu.Lock()
	conn := r.conn
	stop := r.stop
	r.conn = nil
	r.stop = nil
	r.running = false
	r.mu.Unlock()

	if conn == nil {
		return
	}

	if stop != nil {
		close(stop)
	}
	conn.Close()
	r.wg.Wait()

	r.logger.Info("UDP receiver stopped")
}

// IsRunning reports whether the receive loop is live. It flips to false as
// soon as the loop exits, including a terminal socket failure.
func (r *Receiver) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Packets returns the handoff channel for the current run. The channel is
// closed when the receive loop exits. Returns nil on a stopped receiver.
func (r *Receiver) Packets() <-chan *protocol.SnapshotPacket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.packets
}

// LocalAddr returns the bound address, or nil when stopped. Useful when the
// receiver was started on port 0.
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

func (r *Receiver) markStopped() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// receiveLoop polls the socket with a short read deadline so a pending stop
// request is honored within one interval. Malformed datagrams are dropped
// and the loop continues; only a socket-level failure is terminal.
func (r *Receiver) receiveLoop(conn *net.UDPConn, stop chan struct{}, out chan<- *protocol.SnapshotPacket) {
	defer r.wg.Done()
	defer close(out)
	defer r.markStopped()

	buf := make([]byte, maxDatagramSize)

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			r.logger.Errorf("UDP receiver terminating, can't arm read deadline: %v", err)
			return
		}
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-stop:
				// Socket closed by Stop; not an error.
			default:
				r.logger.Errorf("UDP receiver terminating on read error: %v", err)
			}
			return
		}

		if r.logPackets {
			r.logger.Debugf("RX %d bytes from %s: %s", n, addr, buf[:n])
		}

		pkt, err := protocol.Decode(buf[:n])
		if err != nil {
			r.logger.Debugf("Dropping malformed datagram from %s: %v", addr, err)
			continue
		}

		select {
		case out <- pkt:
		case <-stop:
			return
		}
	}
}
