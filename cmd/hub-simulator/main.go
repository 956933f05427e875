// Package main provides a detection-hub simulator that speaks the
// people-counter UDP/JSON protocol: it emits snapshot packets on a timer or
// on request, and accepts the command messages a real hub would.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// sensorSim holds one simulated sensor's occupancy state.
type sensorSim struct {
	serial string
	id     string
	count  int
}

type snapshotPayload struct {
	Schema    string        `json:"schema"`
	Type      string        `json:"type"`
	Timestamp float64       `json:"timestamp"`
	Sensors   []sensorEntry `json:"sensors"`
}

type sensorEntry struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

type sensorListPayload struct {
	Schema    string   `json:"schema"`
	Type      string   `json:"type"`
	Timestamp float64  `json:"timestamp"`
	Serials   []string `json:"serials"`
}

type commandMessage struct {
	Cmd     string   `json:"cmd"`
	Seconds *float64 `json:"seconds"`
	Conf    *float64 `json:"conf"`
	Enabled *bool    `json:"enabled"`
	MinMM   *int     `json:"min_mm"`
	MaxMM   *int     `json:"max_mm"`
}

type hubSimulator struct {
	mu       sync.Mutex
	sensors  []*sensorSim
	interval time.Duration
	conf     float64

	dataAddr *net.UDPAddr
	dataConn *net.UDPConn

	shutdown chan struct{}
	once     sync.Once
}

func newHubSimulator(dataHost string, dataPort, sensorCount int, interval time.Duration) (*hubSimulator, error) {
	dataAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", dataHost, dataPort))
	if err != nil {
		return nil, fmt.Errorf("resolving data target: %w", err)
	}

	dataConn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("creating data socket: %w", err)
	}

	h := &hubSimulator{
		interval: interval,
		conf:     0.55,
		dataAddr: dataAddr,
		dataConn: dataConn,
		shutdown: make(chan struct{}),
	}
	for i := 0; i < sensorCount; i++ {
		h.sensors = append(h.sensors, &sensorSim{
			serial: fmt.Sprintf("8416120700%02d", i),
			id:     fmt.Sprintf("SENSORE%03d", i+1),
			count:  rand.Intn(4),
		})
	}
	return h, nil
}

func (h *hubSimulator) stop() {
	h.once.Do(func() { close(h.shutdown) })
}

// sendSnapshot emits one snapshot_counts datagram with random-walked counts.
func (h *hubSimulator) sendSnapshot() {
	h.mu.Lock()
	payload := snapshotPayload{
		Schema:    "people_count_v1",
		Type:      "snapshot_counts",
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}
	for _, s := range h.sensors {
		s.count += rand.Intn(3) - 1
		if s.count < 0 {
			s.count = 0
		}
		payload.Sensors = append(payload.Sensors, sensorEntry{ID: s.id, Count: s.count})
	}
	h.mu.Unlock()

	h.sendJSON(payload)
}

func (h *hubSimulator) sendSensorList() {
	h.mu.Lock()
	payload := sensorListPayload{
		Schema:    "people_count_v1",
		Type:      "sensor_list",
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Serials:   make([]string, 0, len(h.sensors)),
	}
	for _, s := range h.sensors {
		payload.Serials = append(payload.Serials, s.serial)
	}
	h.mu.Unlock()

	h.sendJSON(payload)
}

func (h *hubSimulator) sendJSON(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	if _, err := h.dataConn.WriteToUDP(data, h.dataAddr); err != nil {
		log.Printf("send error: %v", err)
	}
}

// snapshotLoop emits periodic snapshots; a zero interval means snapshots
// only happen on explicit capture commands.
func (h *hubSimulator) snapshotLoop() {
	for {
		h.mu.Lock()
		interval := h.interval
		h.mu.Unlock()

		if interval <= 0 {
			select {
			case <-h.shutdown:
				return
			case <-time.After(250 * time.Millisecond):
			}
			continue
		}

		select {
		case <-h.shutdown:
			return
		case <-time.After(interval):
			h.sendSnapshot()
		}
	}
}

// commandLoop receives and applies command datagrams from the environment.
func (h *hubSimulator) commandLoop(cmdConn *net.UDPConn) {
	buf := make([]byte, 65535)
	for {
		select {
		case <-h.shutdown:
			return
		default:
		}

		cmdConn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, addr, err := cmdConn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			log.Printf("command read error: %v", err)
			return
		}

		var cmd commandMessage
		if err := json.Unmarshal(buf[:n], &cmd); err != nil {
			log.Printf("ignoring malformed command from %s: %v", addr, err)
			continue
		}
		h.handleCommand(cmd, addr)
	}
}

func (h *hubSimulator) handleCommand(cmd commandMessage, addr *net.UDPAddr) {
	switch cmd.Cmd {
	case "capture":
		log.Printf("[%s] capture", addr)
		h.sendSnapshot()
	case "set_interval":
		if cmd.Seconds != nil && *cmd.Seconds >= 0 {
			h.mu.Lock()
			h.interval = time.Duration(*cmd.Seconds * float64(time.Second))
			h.mu.Unlock()
			log.Printf("[%s] set_interval %.2fs", addr, *cmd.Seconds)
		}
	case "list_sensors":
		log.Printf("[%s] list_sensors", addr)
		h.sendSensorList()
	case "set_conf":
		if cmd.Conf != nil {
			h.mu.Lock()
			h.conf = *cmd.Conf
			h.mu.Unlock()
			log.Printf("[%s] set_conf %.2f", addr, *cmd.Conf)
		}
	case "toggle_depth_input":
		if cmd.Enabled != nil {
			log.Printf("[%s] toggle_depth_input %v", addr, *cmd.Enabled)
		}
	case "set_depth_range":
		if cmd.MinMM != nil && cmd.MaxMM != nil {
			log.Printf("[%s] set_depth_range %d..%d mm", addr, *cmd.MinMM, *cmd.MaxMM)
		}
	case "set_auto_depth":
		if cmd.Enabled != nil {
			log.Printf("[%s] set_auto_depth %v", addr, *cmd.Enabled)
		}
	case "shutdown":
		log.Printf("[%s] shutdown", addr)
		h.stop()
	default:
		log.Printf("[%s] unknown command %q", addr, cmd.Cmd)
	}
}

func main() {
	dataHost := flag.String("data-host", "127.0.0.1", "Host receiving snapshot packets")
	dataPort := flag.Int("data-port", 7777, "Port receiving snapshot packets")
	cmdPort := flag.Int("cmd-port", 7780, "Port to listen on for commands")
	interval := flag.Duration("interval", time.Second, "Snapshot interval (0 = only on capture)")
	sensorCount := flag.Int("sensors", 3, "Number of simulated sensors")
	flag.Parse()

	h, err := newHubSimulator(*dataHost, *dataPort, *sensorCount, *interval)
	if err != nil {
		log.Fatalf("setup failed: %v", err)
	}

	cmdConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: *cmdPort})
	if err != nil {
		log.Fatalf("binding command port %d: %v", *cmdPort, err)
	}

	log.Printf("hub simulator: %d sensors, snapshots to %s:%d every %v, commands on :%d",
		*sensorCount, *dataHost, *dataPort, *interval, *cmdPort)

	go h.snapshotLoop()
	go h.commandLoop(cmdConn)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigs:
	case <-h.shutdown:
	}

	h.stop()
	cmdConn.Close()
	h.dataConn.Close()
	log.Println("hub simulator stopped")
}
