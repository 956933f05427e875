// Package config defines the bridge configuration structures and the
// providers that load them.
package config

// Default values for the bridge configuration surface.
const (
	DefaultListenAddr = "0.0.0.0"
	DefaultListenPort = 7777
	DefaultTargetHost = "127.0.0.1"
	DefaultTargetPort = 7780
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// LoadConfig loads the complete configuration
	LoadConfig() (*ConfigData, error)

	// Close releases any resources held by the provider
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Bridge      BridgeData       `json:"bridge"`
	Storage     StorageData      `json:"storage,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty"`
}

// BridgeData holds the UDP bridge configuration: where to listen for
// snapshot packets and where to send commands.
type BridgeData struct {
	ListenAddr  string `json:"listen_addr"`
	ListenPort  int    `json:"listen_port"`
	AutoStart   bool   `json:"auto_start"`
	LogPackets  bool   `json:"log_packets"`
	TargetHost  string `json:"target_host"`
	TargetPort  int    `json:"target_port"`
	AutoConnect bool   `json:"auto_connect"`
}

// StorageData holds the configuration for snapshot history backends
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

// SQLiteData configures the local SQLite snapshot history store
type SQLiteData struct {
	Path string `json:"path"`
}

// TimescaleDBData configures the TimescaleDB snapshot history store
type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// ControllerData holds the configuration for controller backends
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
}

// RESTServerData configures the REST status/command API
type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// applyDefaults fills zero-valued bridge fields with the documented
// defaults. Boolean flags are handled by the providers, which distinguish
// absent from explicitly-false.
func (c *ConfigData) applyDefaults() {
	if c.Bridge.ListenAddr == "" {
		c.Bridge.ListenAddr = DefaultListenAddr
	}
	if c.Bridge.ListenPort == 0 {
		c.Bridge.ListenPort = DefaultListenPort
	}
	if c.Bridge.TargetHost == "" {
		c.Bridge.TargetHost = DefaultTargetHost
	}
	if c.Bridge.TargetPort == 0 {
		c.Bridge.TargetPort = DefaultTargetPort
	}
}
