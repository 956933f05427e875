// Package bridge implements the UDP transport between the detection hub and
// the consuming environment: a lifecycle-managed datagram receiver for
// inbound snapshot packets and a fire-and-forget datagram sender for
// outbound commands.
package bridge

import (
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/peoplecounter/udpbridge/internal/protocol"
	"github.com/peoplecounter/udpbridge/pkg/config"
	"go.uber.org/zap"
)

// PacketHandler consumes one decoded inbound packet. The bridge invokes it
// from a single dedicated dispatch goroutine, so a handler may touch
// consumer state without further locking.
type PacketHandler func(*protocol.SnapshotPacket)

// Bridge binds the receiver and sender to the host's activation lifecycle.
// The host calls Start/Connect on activation and Stop/Disconnect on
// deactivation; both directions also honor the auto_start and auto_connect
// configuration flags via Activate.
type Bridge struct {
	cfg        config.BridgeData
	logger     *zap.SugaredLogger
	instanceID string

	receiver *Receiver
	sender   *Sender
	onPacket PacketHandler

	mu         sync.Mutex
	started    bool
	dispatchWG sync.WaitGroup
}

// New creates a bridge from configuration. onPacket may be nil, in which
// case decoded packets are drained and discarded.
func New(cfg config.BridgeData, onPacket PacketHandler, logger *zap.SugaredLogger) *Bridge {
	return &Bridge{
		cfg:        cfg,
		logger:     logger,
		instanceID: uuid.NewString(),
		receiver:   NewReceiver(logger, cfg.LogPackets),
		sender:     NewSender(logger),
		onPacket:   onPacket,
	}
}

// InstanceID identifies this bridge instance for diagnostics.
func (b *Bridge) InstanceID() string {
	return b.instanceID
}

// Activate applies the configured auto flags: it starts the receiver when
// auto_start is set and connects the sender when auto_connect is set.
func (b *Bridge) Activate() error {
	if b.cfg.AutoStart {
		if err := b.Start(); err != nil {
			return err
		}
	}
	if b.cfg.AutoConnect {
		if err := b.Connect(); err != nil {
			return err
		}
	}
	return nil
}

// Deactivate tears down both directions. Safe to call at any time.
func (b *Bridge) Deactivate() {
	b.Stop()
	b.Disconnect()
}

// Start binds the configured listen address and begins dispatching decoded
// packets to the handler. Idempotent.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	if err := b.receiver.Start(b.cfg.ListenAddr, b.cfg.ListenPort); err != nil {
		return err
	}

	packets := b.receiver.Packets()
	b.dispatchWG.Add(1)
	go b.dispatch(packets)

	b.started = true
	b.logger.Infof("Bridge [%s] listening on %s:%d", b.instanceID, b.cfg.ListenAddr, b.cfg.ListenPort)
	return nil
}

// Stop halts the receiver and joins both the network and dispatch
// goroutines. No handler invocation happens after Stop returns. Idempotent.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()

	b.receiver.Stop()
	b.dispatchWG.Wait()
}

// Connect opens the outbound socket toward the configured target host.
func (b *Bridge) Connect() error {
	return b.sender.Connect(b.cfg.TargetHost)
}

// Disconnect closes the outbound socket.
func (b *Bridge) Disconnect() {
	b.sender.Disconnect()
}

// LocalAddr returns the receiver's bound address, or nil when stopped.
func (b *Bridge) LocalAddr() net.Addr {
	return b.receiver.LocalAddr()
}

// IsRunning reports whether the inbound receive loop is live.
func (b *Bridge) IsRunning() bool {
	return b.receiver.IsRunning()
}

// IsConnected reports whether the outbound socket is open.
func (b *Bridge) IsConnected() bool {
	return b.sender.IsConnected()
}

// SendCommand transmits one command datagram to the configured target and
// reports success as a boolean, logging the failure detail.
func (b *Bridge) SendCommand(cmd protocol.Command) bool {
	if err := b.sender.Send(cmd, b.cfg.TargetHost, b.cfg.TargetPort); err != nil {
		b.logger.Errorf("Command %s failed: %v", cmd.CmdName(), err)
		return false
	}
	if b.cfg.LogPackets {
		b.logger.Debugf("TX %s to %s:%d", cmd.CmdName(), b.cfg.TargetHost, b.cfg.TargetPort)
	}
	return true
}

// dispatch delivers decoded packets to the handler one at a time, in
// arrival order, until the receiver closes the handoff channel.
func (b *Bridge) dispatch(packets <-chan *protocol.SnapshotPacket) {
	defer b.dispatchWG.Done()

	for pkt := range packets {
		if b.onPacket != nil {
			b.onPacket(pkt)
		}
	}
}
