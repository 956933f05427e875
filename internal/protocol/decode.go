package protocol

import (
	"encoding/json"
	"errors"
)

// DecodeError reports an inbound datagram whose payload was not a JSON
// object. Anything less severe (missing fields, bad sensor entries) is
// tolerated by Decode rather than reported.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode packet: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses one inbound datagram into a SnapshotPacket.
//
// It fails only when the payload is not valid JSON or the top level is not
// an object. Missing schema/type/timestamp fields default to zero values. A
// missing or non-array sensors field yields an empty sensor map, and array
// entries that are not objects or carry an empty id are skipped. Duplicate
// sensor ids collapse last-write-wins.
func Decode(data []byte) (*SnapshotPacket, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if root == nil {
		return nil, &DecodeError{Err: errors.New("top-level value is not a JSON object")}
	}

	pkt := &SnapshotPacket{
		Sensors: make(map[string]int),
	}

	if s, ok := root["schema"].(string); ok {
		pkt.Schema = s
	}
	if s, ok := root["type"].(string); ok {
		pkt.Type = s
	}
	if ts, ok := root["timestamp"].(float64); ok {
		pkt.Timestamp = ts
	}

	if arr, ok := root["sensors"].([]interface{}); ok {
		for _, entry := range arr {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			id, ok := obj["id"].(string)
			if !ok || id == "" {
				continue
			}
			count := 0
			if c, ok := obj["count"].(float64); ok {
				count = int(c)
			}
			pkt.Sensors[id] = count
		}
	}

	// sensor_list responses carry serials instead of counts
	if arr, ok := root["serials"].([]interface{}); ok {
		for _, entry := range arr {
			if s, ok := entry.(string); ok {
				pkt.Serials = append(pkt.Serials, s)
			}
		}
	}

	return pkt, nil
}
