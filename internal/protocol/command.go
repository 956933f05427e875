package protocol

import (
	"strconv"
	"strings"
)

// Command is an outbound control message for the hub. Implementations are
// the closed set of commands the hub understands; Encode serializes them
// with the "cmd" field first followed by the variant's fields, matching the
// byte layout the hub's parser was written against.
type Command interface {
	// CmdName returns the wire value of the "cmd" field.
	CmdName() string

	appendFields(b []byte) []byte
}

// Capture requests an immediate snapshot from all sensors.
type Capture struct{}

// SetInterval changes the hub's periodic snapshot interval. Zero disables
// periodic snapshots entirely.
type SetInterval struct {
	Seconds float64
}

// ListSensors asks the hub to report its connected sensor serials.
type ListSensors struct{}

// SetConfidence adjusts the hub's detection confidence threshold, in [0,1].
type SetConfidence struct {
	Conf float64
}

// ToggleDepthInput switches the hub between depth and color camera input.
type ToggleDepthInput struct {
	Enabled bool
}

// SetDepthRange sets the hub's depth normalization window in millimeters.
type SetDepthRange struct {
	MinMM int
	MaxMM int
}

// SetAutoDepth toggles the hub's automatic depth range calibration.
type SetAutoDepth struct {
	Enabled bool
}

// Shutdown asks the hub process to terminate.
type Shutdown struct{}

func (Capture) CmdName() string          { return "capture" }
func (SetInterval) CmdName() string      { return "set_interval" }
func (ListSensors) CmdName() string      { return "list_sensors" }
func (SetConfidence) CmdName() string    { return "set_conf" }
func (ToggleDepthInput) CmdName() string { return "toggle_depth_input" }
func (SetDepthRange) CmdName() string    { return "set_depth_range" }
func (SetAutoDepth) CmdName() string     { return "set_auto_depth" }
func (Shutdown) CmdName() string         { return "shutdown" }

func (Capture) appendFields(b []byte) []byte     { return b }
func (ListSensors) appendFields(b []byte) []byte { return b }
func (Shutdown) appendFields(b []byte) []byte    { return b }

func (c SetInterval) appendFields(b []byte) []byte {
	b = append(b, `,"seconds":`...)
	return appendFloat(b, c.Seconds)
}

func (c SetConfidence) appendFields(b []byte) []byte {
	b = append(b, `,"conf":`...)
	return appendFloat(b, c.Conf)
}

func (c ToggleDepthInput) appendFields(b []byte) []byte {
	b = append(b, `,"enabled":`...)
	return strconv.AppendBool(b, c.Enabled)
}

func (c SetDepthRange) appendFields(b []byte) []byte {
	b = append(b, `,"min_mm":`...)
	b = strconv.AppendInt(b, int64(c.MinMM), 10)
	b = append(b, `,"max_mm":`...)
	return strconv.AppendInt(b, int64(c.MaxMM), 10)
}

func (c SetAutoDepth) appendFields(b []byte) []byte {
	b = append(b, `,"enabled":`...)
	return strconv.AppendBool(b, c.Enabled)
}

// Encode serializes a command to the exact UTF-8 JSON bytes the hub expects.
// Field order is fixed: "cmd" first, then the variant's fields.
func Encode(cmd Command) []byte {
	b := make([]byte, 0, 64)
	b = append(b, `{"cmd":"`...)
	b = append(b, cmd.CmdName()...)
	b = append(b, '"')
	b = cmd.appendFields(b)
	b = append(b, '}')
	return b
}

// appendFloat formats a float the way the hub's JSON tooling does: integral
// values keep a trailing ".0" so 2.0 encodes as "2.0", not "2".
func appendFloat(b []byte, v float64) []byte {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	b = append(b, s...)
	if !strings.ContainsAny(s, ".eE") {
		b = append(b, ".0"...)
	}
	return b
}
