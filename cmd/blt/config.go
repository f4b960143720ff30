package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the blt configuration file (~/.config/blt/config.yaml).
// Absent keys leave the corresponding flag defaults untouched.
type Config struct {
	// Device
	Device string `yaml:"device"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "blt", "config.yaml")
}

// applyDeviceConfig applies the config file device default when the
// --device flag was not explicitly set.
func applyDeviceConfig(c *cli.Command, cfg Config, device *string) {
	if cfg.Device != "" && !c.IsSet("device") {
		*device = cfg.Device
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// LoadConfig reads the config file at path, falling back to the default
// location when path is empty. Returns a zero Config if the file doesn't
// exist.
func LoadConfig(path string) Config {
	if path == "" {
		path = configPath()
	}
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
