// Package app wires the bridge, storage engines, and controllers together
// and manages application lifetime.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/peoplecounter/udpbridge/internal/bridge"
	"github.com/peoplecounter/udpbridge/internal/log"
	"github.com/peoplecounter/udpbridge/internal/managers"
	"github.com/peoplecounter/udpbridge/internal/protocol"
	"github.com/peoplecounter/udpbridge/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return err
	}

	// Initialize the storage manager
	storageManager, err := managers.NewStorageManager(ctx, &wg, cfg)
	if err != nil {
		return err
	}

	// The controller manager needs the bridge and the bridge callback needs
	// the controller manager; the callback only runs after Activate, by
	// which point both exist.
	var controllerManager *managers.ControllerManager

	b := bridge.New(cfg.Bridge, func(pkt *protocol.SnapshotPacket) {
		storageManager.SnapshotDistributor <- pkt
		if controllerManager != nil {
			controllerManager.UpdateSnapshot(pkt)
		}
	}, a.logger)

	controllerManager, err = managers.NewControllerManager(ctx, &wg, cfg, b, a.logger)
	if err != nil {
		return err
	}
	if err := controllerManager.StartControllers(); err != nil {
		return err
	}

	if err := b.Activate(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Tear down the transport first so no packet arrives after the
	// downstream consumers stop.
	b.Deactivate()

	// Cancel context to signal all goroutines to stop
	cancel()

	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
