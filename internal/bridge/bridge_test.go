package bridge

import (
	"net"
	"testing"
	"time"

	"github.com/peoplecounter/udpbridge/internal/protocol"
	"github.com/peoplecounter/udpbridge/pkg/config"
	"go.uber.org/zap"
)

func testBridgeConfig() config.BridgeData {
	return config.BridgeData{
		ListenAddr:  "127.0.0.1",
		ListenPort:  0,
		TargetHost:  "127.0.0.1",
		TargetPort:  7780,
		AutoStart:   true,
		AutoConnect: true,
	}
}

func TestBridgeEndToEnd(t *testing.T) {
	received := make(chan *protocol.SnapshotPacket, 64)
	b := New(testBridgeConfig(), func(pkt *protocol.SnapshotPacket) {
		received <- pkt
	}, zap.NewNop().Sugar())

	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := b.LocalAddr().(*net.UDPAddr)

	sendDatagram(t, addr, `{"schema":"people_count_v1","type":"snapshot_counts","timestamp":7.25,`+
		`"sensors":[{"id":"SENSORE001","count":2},{"id":"SENSORE002","count":5}]}`)

	select {
	case pkt := <-received:
		if pkt.Sensors["SENSORE001"] != 2 || pkt.Sensors["SENSORE002"] != 5 {
			t.Errorf("Sensors = %v", pkt.Sensors)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never received the packet")
	}

	b.Stop()

	// Nothing may be delivered after Stop has returned. The datagram lands
	// on a closed socket and is dropped by the OS.
	if conn, err := net.Dial("udp", addr.String()); err == nil {
		conn.Write([]byte(`{"sensors":[{"id":"LATE","count":1}]}`))
		conn.Close()
	}

	select {
	case pkt := <-received:
		t.Errorf("handler invoked after Stop returned: %+v", pkt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBridgeStartStopIdempotent(t *testing.T) {
	b := New(testBridgeConfig(), nil, zap.NewNop().Sugar())

	b.Stop() // no-op before Start

	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !b.IsRunning() {
		t.Error("IsRunning() = false while started")
	}

	b.Stop()
	b.Stop()
	if b.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestBridgeRapidStartStopCycles(t *testing.T) {
	b := New(testBridgeConfig(), nil, zap.NewNop().Sugar())

	for i := 0; i < 50; i++ {
		if err := b.Start(); err != nil {
			t.Fatalf("cycle %d Start: %v", i, err)
		}
		b.Stop()
	}
	if b.IsRunning() {
		t.Error("IsRunning() = true after final Stop")
	}
}

func TestBridgeSendCommand(t *testing.T) {
	hub, port := listenUDP(t)

	cfg := testBridgeConfig()
	cfg.TargetPort = port
	b := New(cfg, nil, zap.NewNop().Sugar())
	defer b.Disconnect()

	if !b.SendCommand(protocol.SetConfidence{Conf: 0.75}) {
		t.Fatal("SendCommand returned false")
	}
	want := `{"cmd":"set_conf","conf":0.75}`
	if got := readDatagram(t, hub); got != want {
		t.Errorf("hub received %s, want %s", got, want)
	}
	if !b.IsConnected() {
		t.Error("IsConnected() = false after SendCommand")
	}
}

func TestBridgeSendCommandFailure(t *testing.T) {
	cfg := testBridgeConfig()
	cfg.TargetHost = "bad:host:name"
	b := New(cfg, nil, zap.NewNop().Sugar())

	if b.SendCommand(protocol.Capture{}) {
		t.Error("SendCommand to an invalid target returned true")
	}
}

func TestBridgeActivateHonorsFlags(t *testing.T) {
	cfg := testBridgeConfig()
	cfg.AutoStart = false
	cfg.AutoConnect = false

	b := New(cfg, nil, zap.NewNop().Sugar())
	if err := b.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	defer b.Deactivate()

	if b.IsRunning() {
		t.Error("auto_start disabled but receiver is running")
	}
	if b.IsConnected() {
		t.Error("auto_connect disabled but sender is connected")
	}

	cfg.AutoStart = true
	cfg.AutoConnect = true
	b2 := New(cfg, nil, zap.NewNop().Sugar())
	if err := b2.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	defer b2.Deactivate()

	if !b2.IsRunning() {
		t.Error("auto_start enabled but receiver is stopped")
	}
	if !b2.IsConnected() {
		t.Error("auto_connect enabled but sender is disconnected")
	}
}
