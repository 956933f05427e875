// Package storage defines interfaces and implementations for snapshot
// history storage backends.
package storage

import (
	"context"
	"sync"

	"github.com/peoplecounter/udpbridge/internal/protocol"
)

// StorageEngineInterface is an interface that provides a few standardized
// methods for various storage backends
type StorageEngineInterface interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- *protocol.SnapshotPacket
}
