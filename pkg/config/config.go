// Package config handles configuration for screengrid.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the service configuration (config.yaml).
type Config struct {
	Server ServerConfig `yaml:"server"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Device DeviceConfig `yaml:"device"`
	OCR    OCRConfig    `yaml:"ocr"`
	Engine EngineConfig `yaml:"engine"`

	LogLevel string `yaml:"logLevel"` // debug, info, warn, error
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MQTTConfig configures the device transport broker connection.
type MQTTConfig struct {
	BrokerURL string `yaml:"brokerUrl"`
	ClientID  string `yaml:"clientId"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// DeviceConfig configures per-device command behavior.
type DeviceConfig struct {
	CommandTimeoutSeconds int `yaml:"commandTimeoutSeconds"` // Per device command
}

// OCRConfig configures recognition engines.
type OCRConfig struct {
	DefaultEngine string `yaml:"defaultEngine"` // tesseract or paddle
	PaddleURL     string `yaml:"paddleUrl"`     // PaddleOCR serving endpoint
	MaxImageWidth int    `yaml:"maxImageWidth"` // Downscale wider screenshots before OCR
}

// EngineConfig configures the execution engine.
type EngineConfig struct {
	RecordCapacity        int `yaml:"recordCapacity"`        // Bounded LRU record store
	DefaultTimeoutSeconds int `yaml:"defaultTimeoutSeconds"` // Script timeout when unset
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		MQTT: MQTTConfig{
			BrokerURL: "tcp://localhost:1883",
			ClientID:  "screengrid-server",
		},
		Device: DeviceConfig{CommandTimeoutSeconds: 30},
		OCR: OCRConfig{
			DefaultEngine: "tesseract",
			PaddleURL:     "http://localhost:8868",
			MaxImageWidth: 1440,
		},
		Engine: EngineConfig{
			RecordCapacity:        1024,
			DefaultTimeoutSeconds: 60,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from a file, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, run on defaults
	return Default(), nil
}
