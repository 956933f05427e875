package bridge

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/peoplecounter/udpbridge/internal/protocol"
	"go.uber.org/zap"
)

func startTestReceiver(t *testing.T) (*Receiver, *net.UDPAddr) {
	t.Helper()

	r := NewReceiver(zap.NewNop().Sugar(), false)
	if err := r.Start("127.0.0.1", 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(r.Stop)

	addr, ok := r.LocalAddr().(*net.UDPAddr)
	if !ok {
		t.Fatalf("LocalAddr() = %v, want *net.UDPAddr", r.LocalAddr())
	}
	return r, addr
}

func sendDatagram(t *testing.T, addr *net.UDPAddr, payload string) {
	t.Helper()

	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dialing receiver: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("sending datagram: %v", err)
	}
}

func waitPacket(t *testing.T, packets <-chan *protocol.SnapshotPacket) *protocol.SnapshotPacket {
	t.Helper()

	select {
	case pkt, ok := <-packets:
		if !ok {
			t.Fatal("packet channel closed unexpectedly")
		}
		return pkt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a packet")
		return nil
	}
}

func TestReceiverDeliversDecodedPackets(t *testing.T) {
	r, addr := startTestReceiver(t)

	sendDatagram(t, addr, `{"schema":"people_count_v1","type":"snapshot_counts","timestamp":42.5,`+
		`"sensors":[{"id":"SENSORE001","count":3}]}`)

	pkt := waitPacket(t, r.Packets())
	if pkt.Timestamp != 42.5 {
		t.Errorf("Timestamp = %v, want 42.5", pkt.Timestamp)
	}
	if pkt.Sensors["SENSORE001"] != 3 {
		t.Errorf("Sensors = %v, want SENSORE001:3", pkt.Sensors)
	}
}

func TestReceiverStartIdempotent(t *testing.T) {
	r, addr := startTestReceiver(t)

	// Starting a running receiver must not rebind.
	if err := r.Start("127.0.0.1", 0); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if got := r.LocalAddr().(*net.UDPAddr); got.Port != addr.Port {
		t.Errorf("second Start rebound socket: port %d -> %d", addr.Port, got.Port)
	}
	if !r.IsRunning() {
		t.Error("IsRunning() = false after double Start")
	}
}

func TestReceiverStopIdempotent(t *testing.T) {
	r := NewReceiver(zap.NewNop().Sugar(), false)

	// Stop on a never-started receiver is a no-op.
	r.Stop()

	if err := r.Start("127.0.0.1", 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()
	r.Stop()

	if r.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestReceiverInvalidBindAddress(t *testing.T) {
	r := NewReceiver(zap.NewNop().Sugar(), false)

	err := r.Start("not-an-address", 7777)
	if err == nil {
		t.Fatal("Start with invalid address should fail")
	}
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Errorf("error type = %T, want *BindError", err)
	}
	if r.IsRunning() {
		t.Error("IsRunning() = true after failed Start")
	}
}

func TestReceiverPortInUse(t *testing.T) {
	_, addr := startTestReceiver(t)

	other := NewReceiver(zap.NewNop().Sugar(), false)
	err := other.Start("127.0.0.1", addr.Port)
	if err == nil {
		other.Stop()
		t.Fatal("binding an in-use port should fail")
	}
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Errorf("error type = %T, want *BindError", err)
	}
}

func TestReceiverSurvivesMalformedDatagrams(t *testing.T) {
	r, addr := startTestReceiver(t)

	sendDatagram(t, addr, `{{{not json`)
	sendDatagram(t, addr, `[1,2,3]`)
	sendDatagram(t, addr, `"just a string"`)
	sendDatagram(t, addr, `{"sensors":[{"id":"A","count":1}]}`)

	pkt := waitPacket(t, r.Packets())
	if pkt.Sensors["A"] != 1 {
		t.Errorf("Sensors = %v, want the packet following the malformed ones", pkt.Sensors)
	}
	if !r.IsRunning() {
		t.Error("receiver stopped on malformed datagrams")
	}
}

func TestReceiverPreservesArrivalOrder(t *testing.T) {
	r, addr := startTestReceiver(t)

	const n = 20
	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dialing receiver: %v", err)
	}
	defer conn.Close()

	for i := 0; i < n; i++ {
		payload := fmt.Sprintf(`{"type":"snapshot_counts","timestamp":%d.0,"sensors":[]}`, i)
		if _, err := conn.Write([]byte(payload)); err != nil {
			t.Fatalf("sending datagram %d: %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		pkt := waitPacket(t, r.Packets())
		if pkt.Timestamp != float64(i) {
			t.Fatalf("packet %d has timestamp %v, order not preserved", i, pkt.Timestamp)
		}
	}
}

func TestReceiverStartStopCycles(t *testing.T) {
	r := NewReceiver(zap.NewNop().Sugar(), false)

	for i := 0; i < 50; i++ {
		if err := r.Start("127.0.0.1", 0); err != nil {
			t.Fatalf("cycle %d Start: %v", i, err)
		}
		if !r.IsRunning() {
			t.Fatalf("cycle %d: IsRunning() = false after Start", i)
		}
		r.Stop()
		if r.IsRunning() {
			t.Fatalf("cycle %d: IsRunning() = true after Stop", i)
		}
	}
}

func TestReceiverChannelClosedAfterStop(t *testing.T) {
	r, _ := startTestReceiver(t)
	packets := r.Packets()
	r.Stop()

	select {
	case _, ok := <-packets:
		if ok {
			t.Error("received a packet after Stop returned")
		}
	case <-time.After(time.Second):
		t.Error("packet channel not closed after Stop")
	}
}
