package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags. The boolean flags are
	// pointers so an absent flag can take its default (true for auto_start
	// and auto_connect) while an explicit "false" is respected.
	var yamlConfig struct {
		Bridge struct {
			ListenAddr  string `yaml:"listen_addr"`
			ListenPort  int    `yaml:"listen_port"`
			AutoStart   *bool  `yaml:"auto_start"`
			LogPackets  bool   `yaml:"log_packets"`
			TargetHost  string `yaml:"target_host"`
			TargetPort  int    `yaml:"target_port"`
			AutoConnect *bool  `yaml:"auto_connect"`
		} `yaml:"bridge"`
		Storage struct {
			SQLite *struct {
				Path string `yaml:"path"`
			} `yaml:"sqlite"`
			TimescaleDB *struct {
				ConnectionString string `yaml:"connection_string"`
			} `yaml:"timescaledb"`
		} `yaml:"storage"`
		Controllers []struct {
			Type string `yaml:"type"`
			REST *struct {
				ListenAddr string `yaml:"listen_addr"`
				Port       int    `yaml:"port"`
			} `yaml:"rest"`
		} `yaml:"controllers"`
	}

	if err := yaml.Unmarshal(cfgFile, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Bridge: BridgeData{
			ListenAddr:  yamlConfig.Bridge.ListenAddr,
			ListenPort:  yamlConfig.Bridge.ListenPort,
			AutoStart:   true,
			LogPackets:  yamlConfig.Bridge.LogPackets,
			TargetHost:  yamlConfig.Bridge.TargetHost,
			TargetPort:  yamlConfig.Bridge.TargetPort,
			AutoConnect: true,
		},
	}
	if yamlConfig.Bridge.AutoStart != nil {
		config.Bridge.AutoStart = *yamlConfig.Bridge.AutoStart
	}
	if yamlConfig.Bridge.AutoConnect != nil {
		config.Bridge.AutoConnect = *yamlConfig.Bridge.AutoConnect
	}

	if yamlConfig.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{
			Path: yamlConfig.Storage.SQLite.Path,
		}
	}
	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}

	for _, controller := range yamlConfig.Controllers {
		data := ControllerData{Type: controller.Type}
		if controller.REST != nil {
			data.RESTServer = &RESTServerData{
				ListenAddr: controller.REST.ListenAddr,
				Port:       controller.REST.Port,
			}
		}
		config.Controllers = append(config.Controllers, data)
	}

	config.applyDefaults()
	return config, nil
}

// Close is a no-op for the YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
