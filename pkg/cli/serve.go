package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/screengrid-dev/screengrid/pkg/api"
	"github.com/screengrid-dev/screengrid/pkg/config"
	"github.com/screengrid-dev/screengrid/pkg/device"
	"github.com/screengrid-dev/screengrid/pkg/engine"
	"github.com/screengrid-dev/screengrid/pkg/logger"
	"github.com/screengrid-dev/screengrid/pkg/ocr"
	"github.com/screengrid-dev/screengrid/pkg/scripts"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the screengrid API server",
	Description: `Start the HTTP API, connect OCR engines, and serve script
executions against devices reachable through the MQTT broker.

Examples:
  screengrid serve
  screengrid serve --port 9090
  screengrid -c /etc/screengrid/config.yaml serve`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "Listen host (overrides config)",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Listen port (overrides config)",
		},
	},
	Action: runServe,
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if c.Bool("verbose") {
		level = "debug"
	}
	logger.Init(level)

	ocrRegistry := buildOCRRegistry(cfg)

	scriptRegistry := scripts.NewRegistry(nil)

	pool := newClientPool(cfg)
	defer pool.Close()

	e := engine.New(engine.Config{
		RecordCapacity: cfg.Engine.RecordCapacity,
		DefaultTimeout: time.Duration(cfg.Engine.DefaultTimeoutSeconds) * time.Second,
	}, scriptRegistry, ocrRegistry, pool.Get)

	host := cfg.Server.Host
	if c.IsSet("host") {
		host = c.String("host")
	}
	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	server := api.NewServer(e, scriptRegistry, ocrRegistry)
	return server.Run(fmt.Sprintf("%s:%d", host, port))
}

// loadConfig reads the config file named by --config, or falls back to
// config.yaml in the screengrid home.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadFromDir(config.GetHome())
}

// buildOCRRegistry wires up every known engine. Engines that fail their
// availability probe are still registered so the status endpoint can
// report them.
func buildOCRRegistry(cfg *config.Config) *ocr.Registry {
	registry := ocr.NewRegistry(cfg.OCR.MaxImageWidth)
	registry.Register(ocr.NewTesseractEngine())
	registry.Register(ocr.NewPaddleEngine(cfg.OCR.PaddleURL))

	if cfg.OCR.DefaultEngine != "" {
		if err := registry.SetDefault(cfg.OCR.DefaultEngine); err != nil {
			logger.Warn("configured default OCR engine rejected: %v", err)
		}
	}
	return registry
}

// clientPool caches one MQTT client per device so repeated executions
// against the same device share a broker session.
type clientPool struct {
	mu      sync.Mutex
	cfg     *config.Config
	clients map[string]*device.MQTTClient
}

func newClientPool(cfg *config.Config) *clientPool {
	return &clientPool{
		cfg:     cfg,
		clients: make(map[string]*device.MQTTClient),
	}
}

// Get returns the cached client for the device, connecting on first use.
func (p *clientPool) Get(deviceID string) (device.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[deviceID]; ok {
		return client, nil
	}

	timeout := time.Duration(p.cfg.Device.CommandTimeoutSeconds) * time.Second
	client, err := device.NewMQTTClient(p.cfg.MQTT, deviceID, timeout)
	if err != nil {
		return nil, err
	}
	p.clients[deviceID] = client
	return client, nil
}

func (p *clientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, client := range p.clients {
		client.Close()
	}
	p.clients = make(map[string]*device.MQTTClient)
}
