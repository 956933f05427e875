// Package managers wires configured storage engines and controllers to the
// snapshot stream coming off the bridge.
package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/peoplecounter/udpbridge/internal/protocol"
	"github.com/peoplecounter/udpbridge/internal/storage"
	"github.com/peoplecounter/udpbridge/internal/storage/sqlite"
	"github.com/peoplecounter/udpbridge/internal/storage/timescaledb"
	"github.com/peoplecounter/udpbridge/pkg/config"
)

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines             []StorageEngine
	SnapshotDistributor chan *protocol.SnapshotPacket
}

// StorageEngine holds a backend storage engine's interface as well as a
// channel for passing snapshots to the engine
type StorageEngine struct {
	Engine storage.StorageEngineInterface
	C      chan<- *protocol.SnapshotPacket
}

// NewStorageManager creates a StorageManager object, populated with all
// configured storage engines
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, c *config.ConfigData) (*StorageManager, error) {
	s := StorageManager{}

	// Channel the bridge callback feeds; the distributor fans it out to
	// every configured engine.
	s.SnapshotDistributor = make(chan *protocol.SnapshotPacket, 20)

	go s.startSnapshotDistributor(ctx, wg)

	if c.Storage.SQLite != nil && c.Storage.SQLite.Path != "" {
		if err := s.AddEngine(ctx, wg, "sqlite", c); err != nil {
			return &s, fmt.Errorf("could not add SQLite storage backend: %v", err)
		}
	}

	if c.Storage.TimescaleDB != nil && c.Storage.TimescaleDB.ConnectionString != "" {
		if err := s.AddEngine(ctx, wg, "timescaledb", c); err != nil {
			return &s, fmt.Errorf("could not add TimescaleDB storage backend: %v", err)
		}
	}

	return &s, nil
}

// AddEngine adds a new StorageEngine of name engineName to our StorageManager
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, engineName string, c *config.ConfigData) error {
	switch engineName {
	case "sqlite":
		se := StorageEngine{}
		engine, err := sqlite.New(c.Storage.SQLite.Path)
		if err != nil {
			return err
		}
		se.Engine = engine
		se.C = se.Engine.StartStorageEngine(ctx, wg)
		s.Engines = append(s.Engines, se)
	case "timescaledb":
		se := StorageEngine{}
		engine, err := timescaledb.New(ctx, c.Storage.TimescaleDB.ConnectionString)
		if err != nil {
			return err
		}
		se.Engine = engine
		se.C = se.Engine.StartStorageEngine(ctx, wg)
		s.Engines = append(s.Engines, se)
	default:
		return fmt.Errorf("unknown storage engine: %s", engineName)
	}

	return nil
}

// startSnapshotDistributor receives snapshots from the bridge and fans them
// out to the various storage backends
func (s *StorageManager) startSnapshotDistributor(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	defer wg.Done()

	for {
		select {
		case pkt := <-s.SnapshotDistributor:
			for _, e := range s.Engines {
				e.C <- pkt
			}
		case <-ctx.Done():
			return
		}
	}
}
