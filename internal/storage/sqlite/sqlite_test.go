package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/peoplecounter/udpbridge/internal/log"
	"github.com/peoplecounter/udpbridge/internal/protocol"
)

func TestMain(m *testing.M) {
	if err := log.Init(true); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func countRows(t *testing.T, s *Storage) int {
	t.Helper()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM people_counts`).Scan(&n); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	return n
}

func TestStoreSnapshot(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.db.Close()

	pkt := &protocol.SnapshotPacket{
		Schema:    protocol.SchemaPeopleCount,
		Type:      protocol.TypeSnapshotCounts,
		Timestamp: 1724489000.5,
		Sensors:   map[string]int{"SENSORE001": 3, "SENSORE002": 0},
	}
	if err := s.StoreSnapshot(pkt); err != nil {
		t.Fatalf("StoreSnapshot: %v", err)
	}

	if n := countRows(t, s); n != 2 {
		t.Errorf("row count = %d, want 2", n)
	}

	var count int
	err = s.db.QueryRow(
		`SELECT count FROM people_counts WHERE sensor_id = ? AND hub_timestamp = ?`,
		"SENSORE001", 1724489000.5,
	).Scan(&count)
	if err != nil {
		t.Fatalf("querying stored row: %v", err)
	}
	if count != 3 {
		t.Errorf("stored count = %d, want 3", count)
	}
}

func TestStoreSnapshotEmptySensors(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.db.Close()

	if err := s.StoreSnapshot(&protocol.SnapshotPacket{Sensors: map[string]int{}}); err != nil {
		t.Fatalf("StoreSnapshot: %v", err)
	}
	if n := countRows(t, s); n != 0 {
		t.Errorf("row count = %d, want 0 for an empty snapshot", n)
	}
}

func TestStorageEngineConsumesChannel(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	snapshots := s.StartStorageEngine(ctx, &wg)
	snapshots <- &protocol.SnapshotPacket{
		Timestamp: 10.0,
		Sensors:   map[string]int{"A": 1},
	}

	deadline := time.Now().Add(2 * time.Second)
	for countRows(t, s) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("engine never stored the snapshot")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	wg.Wait()
}

func TestNewBadPath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "dir", "history.db")); err == nil {
		t.Error("New with an unreachable path should fail")
	}
}
