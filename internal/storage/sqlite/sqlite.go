// Package sqlite stores snapshot history in a local SQLite database, one
// row per sensor per snapshot. It suits single-host deployments that want a
// session log without running a database server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/peoplecounter/udpbridge/internal/log"
	"github.com/peoplecounter/udpbridge/internal/protocol"

	_ "modernc.org/sqlite"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS people_counts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	received_at   REAL    NOT NULL,
	hub_timestamp REAL    NOT NULL,
	sensor_id     TEXT    NOT NULL,
	count         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_people_counts_sensor ON people_counts (sensor_id, received_at);`

// Storage holds the connection to a SQLite storage backend
type Storage struct {
	db *sql.DB
}

// New opens (creating if necessary) the SQLite history database at path
func New(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	return &Storage{db: db}, nil
}

// StartStorageEngine creates a goroutine loop to receive snapshots and
// write them to the history database
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- *protocol.SnapshotPacket {
	log.Info("starting SQLite storage engine...")
	snapshotChan := make(chan *protocol.SnapshotPacket, 10)

	wg.Add(1)
	go s.processSnapshots(ctx, wg, snapshotChan)

	return snapshotChan
}

func (s *Storage) processSnapshots(ctx context.Context, wg *sync.WaitGroup, snapshots <-chan *protocol.SnapshotPacket) {
	defer wg.Done()
	defer s.db.Close()

	for {
		select {
		case pkt := <-snapshots:
			if err := s.StoreSnapshot(pkt); err != nil {
				log.Error("could not store snapshot:", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received, stopping SQLite storage engine")
			return
		}
	}
}

// StoreSnapshot stores every sensor count of one snapshot packet in a
// single transaction
func (s *Storage) StoreSnapshot(pkt *protocol.SnapshotPacket) error {
	if len(pkt.Sensors) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	receivedAt := float64(time.Now().UnixNano()) / float64(time.Second)
	for id, count := range pkt.Sensors {
		if _, err := tx.Exec(
			`INSERT INTO people_counts (received_at, hub_timestamp, sensor_id, count) VALUES (?, ?, ?, ?)`,
			receivedAt, pkt.Timestamp, id, count,
		); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
