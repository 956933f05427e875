// Package timescaledb stores snapshot history in a TimescaleDB hypertable,
// one row per sensor per snapshot.
package timescaledb

import (
	"context"
	"sync"
	"time"

	"github.com/peoplecounter/udpbridge/internal/database"
	"github.com/peoplecounter/udpbridge/internal/log"
	"github.com/peoplecounter/udpbridge/internal/protocol"
	"gorm.io/gorm"
)

// SensorCountRow is one sensor's count from one snapshot packet.
type SensorCountRow struct {
	Time         time.Time `gorm:"column:time"`
	HubTimestamp float64   `gorm:"column:hub_timestamp"`
	SensorID     string    `gorm:"column:sensor_id"`
	Count        int       `gorm:"column:count"`
}

// TableName customizes the table name used by GORM
func (SensorCountRow) TableName() string {
	return "people_counts"
}

// Storage holds the connection to a TimescaleDB storage backend
type Storage struct {
	db *gorm.DB
}

// New sets up a new TimescaleDB storage backend
func New(ctx context.Context, connectionString string) (*Storage, error) {
	log.Info("connecting to TimescaleDB...")
	db, err := database.CreateConnection(connectionString)
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}

	t := &Storage{db: db}

	log.Info("creating people_counts table...")
	if err := db.WithContext(ctx).Exec(createTableSQL).Error; err != nil {
		return nil, err
	}

	log.Info("creating TimescaleDB extension...")
	if err := db.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		return nil, err
	}

	log.Info("creating hypertable...")
	if err := db.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		return nil, err
	}

	return t, nil
}

// StartStorageEngine creates a goroutine loop to receive snapshots and send
// them off to TimescaleDB
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- *protocol.SnapshotPacket {
	log.Info("starting TimescaleDB storage engine...")
	snapshotChan := make(chan *protocol.SnapshotPacket, 10)

	wg.Add(1)
	go t.processSnapshots(ctx, wg, snapshotChan)

	return snapshotChan
}

func (t *Storage) processSnapshots(ctx context.Context, wg *sync.WaitGroup, snapshots <-chan *protocol.SnapshotPacket) {
	defer wg.Done()

	for {
		select {
		case pkt := <-snapshots:
			if err := t.StoreSnapshot(pkt); err != nil {
				log.Error("could not store snapshot:", err)
			}
		case <-ctx.Done():
			log.Info("cancellation request received, stopping TimescaleDB storage engine")
			return
		}
	}
}

// StoreSnapshot stores every sensor count of one snapshot packet
func (t *Storage) StoreSnapshot(pkt *protocol.SnapshotPacket) error {
	if len(pkt.Sensors) == 0 {
		return nil
	}

	receivedAt := time.Now()
	rows := make([]SensorCountRow, 0, len(pkt.Sensors))
	for id, count := range pkt.Sensors {
		rows = append(rows, SensorCountRow{
			Time:         receivedAt,
			HubTimestamp: pkt.Timestamp,
			SensorID:     id,
			Count:        count,
		})
	}

	return t.db.Create(&rows).Error
}
