package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
server:
  host: 127.0.0.1
  port: 9090
mqtt:
  brokerUrl: tcp://broker.local:1883
  clientId: sg-test
device:
  commandTimeoutSeconds: 10
ocr:
  defaultEngine: paddle
  paddleUrl: http://paddle.local:8868
  maxImageWidth: 1080
engine:
  recordCapacity: 256
  defaultTimeoutSeconds: 30
logLevel: debug
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.MQTT.BrokerURL != "tcp://broker.local:1883" {
		t.Errorf("expected broker tcp://broker.local:1883, got %s", cfg.MQTT.BrokerURL)
	}
	if cfg.MQTT.ClientID != "sg-test" {
		t.Errorf("expected clientId sg-test, got %s", cfg.MQTT.ClientID)
	}
	if cfg.Device.CommandTimeoutSeconds != 10 {
		t.Errorf("expected command timeout 10, got %d", cfg.Device.CommandTimeoutSeconds)
	}
	if cfg.OCR.DefaultEngine != "paddle" {
		t.Errorf("expected default engine paddle, got %s", cfg.OCR.DefaultEngine)
	}
	if cfg.OCR.MaxImageWidth != 1080 {
		t.Errorf("expected max image width 1080, got %d", cfg.OCR.MaxImageWidth)
	}
	if cfg.Engine.RecordCapacity != 256 {
		t.Errorf("expected record capacity 256, got %d", cfg.Engine.RecordCapacity)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected logLevel debug, got %s", cfg.LogLevel)
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 9999
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.OCR.DefaultEngine != "tesseract" {
		t.Errorf("expected default engine from defaults, got %s", cfg.OCR.DefaultEngine)
	}
	if cfg.Engine.RecordCapacity != 1024 {
		t.Errorf("expected default record capacity 1024, got %d", cfg.Engine.RecordCapacity)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `server: [invalid yaml`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromDir_ConfigYaml(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `logLevel: warn`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("expected logLevel warn, got %s", cfg.LogLevel)
	}
}

func TestLoadFromDir_ConfigYml(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	content := `logLevel: error`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("expected logLevel error, got %s", cfg.LogLevel)
	}
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should return defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default logLevel info, got %s", cfg.LogLevel)
	}
}

func TestLoadFromDir_PrefersYamlOverYml(t *testing.T) {
	dir := t.TempDir()

	yamlContent := `logLevel: debug`
	ymlContent := `logLevel: error`

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(ymlContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should prefer config.yaml
	if cfg.LogLevel != "debug" {
		t.Errorf("expected logLevel debug (from config.yaml), got %s", cfg.LogLevel)
	}
}
