package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/peoplecounter/udpbridge/internal/bridge"
	"github.com/peoplecounter/udpbridge/internal/controllers/restserver"
	"github.com/peoplecounter/udpbridge/internal/protocol"
	"github.com/peoplecounter/udpbridge/pkg/config"
	"go.uber.org/zap"
)

// Controller is an interface that provides standard methods for various
// controller backends
type Controller interface {
	StartController() error
}

// ControllerManager creates and starts the configured controllers
type ControllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	logger      *zap.SugaredLogger
	controllers []Controller

	// REST controllers additionally consume the snapshot stream for their
	// status endpoints.
	restControllers []*restserver.Controller
}

// NewControllerManager creates a new controller manager
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, c *config.ConfigData, b *bridge.Bridge, logger *zap.SugaredLogger) (*ControllerManager, error) {
	cm := &ControllerManager{
		ctx:    ctx,
		wg:     wg,
		logger: logger,
	}

	for _, con := range c.Controllers {
		switch con.Type {
		case "restserver", "rest":
			if con.RESTServer == nil {
				return nil, fmt.Errorf("rest controller requires a rest config block")
			}
			ctrl := restserver.NewController(ctx, wg, *con.RESTServer, b, logger)
			cm.controllers = append(cm.controllers, ctrl)
			cm.restControllers = append(cm.restControllers, ctrl)
		default:
			return nil, fmt.Errorf("unknown controller type: %q", con.Type)
		}
	}

	return cm, nil
}

// StartControllers starts all configured controllers
func (cm *ControllerManager) StartControllers() error {
	for _, controller := range cm.controllers {
		if err := controller.StartController(); err != nil {
			return fmt.Errorf("error starting controller: %v", err)
		}
	}

	cm.logger.Infof("Started %d controllers successfully", len(cm.controllers))
	return nil
}

// UpdateSnapshot forwards a decoded packet to every controller that tracks
// the latest snapshot
func (cm *ControllerManager) UpdateSnapshot(pkt *protocol.SnapshotPacket) {
	for _, ctrl := range cm.restControllers {
		ctrl.UpdateSnapshot(pkt)
	}
}
