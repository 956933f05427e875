package restserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/peoplecounter/udpbridge/internal/protocol"
)

type healthResponse struct {
	Status       string `json:"status"`
	InstanceID   string `json:"instance_id"`
	Running      bool   `json:"running"`
	Connected    bool   `json:"connected"`
	LastPacketAt string `json:"last_packet_at,omitempty"`
}

func (c *Controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	lastReceived := c.lastReceived
	c.mu.RUnlock()

	resp := healthResponse{
		Status:     "ok",
		InstanceID: c.bridge.InstanceID(),
		Running:    c.bridge.IsRunning(),
		Connected:  c.bridge.IsConnected(),
	}
	if !lastReceived.IsZero() {
		resp.LastPacketAt = lastReceived.Format(time.RFC3339Nano)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (c *Controller) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	pkt := c.lastSnapshot
	c.mu.RUnlock()

	if pkt == nil {
		http.Error(w, "no snapshot received yet", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, pkt)
}

func (c *Controller) handleSensors(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	pkt := c.lastSnapshot
	c.mu.RUnlock()

	counts := map[string]int{}
	if pkt != nil {
		counts = pkt.Sensors
	}

	writeJSON(w, http.StatusOK, counts)
}

func (c *Controller) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4096))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	cmd, err := parseCommand(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sent := c.bridge.SendCommand(cmd)
	status := http.StatusOK
	if !sent {
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]interface{}{
		"cmd":  cmd.CmdName(),
		"sent": sent,
	})
}

// parseCommand maps a JSON request body onto a protocol command, validating
// the field contracts before anything reaches the wire.
func parseCommand(body []byte) (protocol.Command, error) {
	var raw struct {
		Cmd     string   `json:"cmd"`
		Seconds *float64 `json:"seconds"`
		Conf    *float64 `json:"conf"`
		Enabled *bool    `json:"enabled"`
		MinMM   *int     `json:"min_mm"`
		MaxMM   *int     `json:"max_mm"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid command body: %w", err)
	}

	switch raw.Cmd {
	case "capture":
		return protocol.Capture{}, nil
	case "set_interval":
		if raw.Seconds == nil || *raw.Seconds < 0 {
			return nil, errors.New("set_interval requires seconds >= 0")
		}
		return protocol.SetInterval{Seconds: *raw.Seconds}, nil
	case "list_sensors":
		return protocol.ListSensors{}, nil
	case "set_conf":
		if raw.Conf == nil || *raw.Conf < 0 || *raw.Conf > 1 {
			return nil, errors.New("set_conf requires conf in [0,1]")
		}
		return protocol.SetConfidence{Conf: *raw.Conf}, nil
	case "toggle_depth_input":
		if raw.Enabled == nil {
			return nil, errors.New("toggle_depth_input requires enabled")
		}
		return protocol.ToggleDepthInput{Enabled: *raw.Enabled}, nil
	case "set_depth_range":
		if raw.MinMM == nil || raw.MaxMM == nil || *raw.MaxMM <= *raw.MinMM {
			return nil, errors.New("set_depth_range requires min_mm < max_mm")
		}
		return protocol.SetDepthRange{MinMM: *raw.MinMM, MaxMM: *raw.MaxMM}, nil
	case "set_auto_depth":
		if raw.Enabled == nil {
			return nil, errors.New("set_auto_depth requires enabled")
		}
		return protocol.SetAutoDepth{Enabled: *raw.Enabled}, nil
	case "shutdown":
		return protocol.Shutdown{}, nil
	default:
		return nil, fmt.Errorf("unknown command: %q", raw.Cmd)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
