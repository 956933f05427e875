// Package protocol implements the UDP/JSON wire contract spoken between the
// detection hub and the consuming environment: outbound command messages and
// inbound snapshot packets, one JSON object per datagram, UTF-8 text.
//
// The codec is deliberately permissive on the inbound side. The hub is a
// best-effort telemetry source, so partial or malformed sensor entries are
// skipped rather than failing the whole packet.
package protocol

// Wire-level schema and message type tags produced by the hub.
const (
	SchemaPeopleCount  = "people_count_v1"
	TypeSnapshotCounts = "snapshot_counts"
	TypeSensorList     = "sensor_list"
)

// SensorCount is a single sensor's occupancy count as it appears in the
// snapshot wire format.
type SensorCount struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// SnapshotPacket is one decoded inbound datagram. Sensor entries collapse to
// a map keyed by sensor id; when the wire format carries duplicate ids, the
// last entry wins. Serials is only populated for sensor_list packets.
type SnapshotPacket struct {
	Schema    string         `json:"schema"`
	Type      string         `json:"type"`
	Timestamp float64        `json:"timestamp"`
	Sensors   map[string]int `json:"sensors"`
	Serials   []string       `json:"serials,omitempty"`
}
