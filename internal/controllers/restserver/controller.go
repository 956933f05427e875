// Package restserver exposes the bridge over HTTP: the latest snapshot,
// per-sensor counts, a health report, and a command endpoint that forwards
// protocol commands to the hub.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/peoplecounter/udpbridge/internal/bridge"
	"github.com/peoplecounter/udpbridge/internal/protocol"
	"github.com/peoplecounter/udpbridge/pkg/config"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	bridge     *bridge.Bridge
	logger     *zap.SugaredLogger
	Server     http.Server

	mu           sync.RWMutex
	lastSnapshot *protocol.SnapshotPacket
	lastReceived time.Time
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, b *bridge.Bridge, logger *zap.SugaredLogger) *Controller {
	if rc.ListenAddr == "" {
		rc.ListenAddr = "0.0.0.0"
	}
	if rc.Port == 0 {
		rc.Port = 8080
	}

	return &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		bridge:     b,
		logger:     logger,
	}
}

// UpdateSnapshot records the most recent decoded packet for the status
// endpoints. Called from the bridge's dispatch goroutine.
func (c *Controller) UpdateSnapshot(pkt *protocol.SnapshotPacket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSnapshot = pkt
	c.lastReceived = time.Now()
}

// StartController starts the HTTP server and a watcher that shuts it down
// when the application context is cancelled
func (c *Controller) StartController() error {
	router := mux.NewRouter()
	router.HandleFunc("/api/health", c.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/snapshot", c.handleSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/api/sensors", c.handleSensors).Methods(http.MethodGet)
	router.HandleFunc("/api/command", c.handleCommand).Methods(http.MethodPost)

	c.Server = http.Server{
		Addr:    fmt.Sprintf("%s:%d", c.restConfig.ListenAddr, c.restConfig.Port),
		Handler: router,
	}

	c.logger.Infof("REST server listening on %s", c.Server.Addr)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		c.Server.Shutdown(context.Background())
	}()

	return nil
}
