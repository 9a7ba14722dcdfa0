package device

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/screengrid-dev/screengrid/pkg/config"
	"github.com/screengrid-dev/screengrid/pkg/core"
	"github.com/screengrid-dev/screengrid/pkg/logger"
	"github.com/screengrid-dev/screengrid/pkg/uitree"
)

// MQTTClient is the MQTT-backed Client implementation. Commands go to
// device/<id>/command, replies arrive on device/<id>/response and are
// matched by command ID.
//
// The device connection is the serialization point: commandMu keeps one
// command in flight at a time, so concurrent executions queue here.
type MQTTClient struct {
	deviceID string
	timeout  time.Duration
	conn     mqtt.Client

	commandMu sync.Mutex // One in-flight command

	pendingMu sync.Mutex
	pending   map[string]chan *Response
}

// NewMQTTClient connects to the broker and subscribes to the device's
// response topic.
func NewMQTTClient(cfg config.MQTTConfig, deviceID string, commandTimeout time.Duration) (*MQTTClient, error) {
	c := &MQTTClient{
		deviceID: deviceID,
		timeout:  commandTimeout,
		pending:  make(map[string]chan *Response),
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("screengrid_%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c.conn = mqtt.NewClient(opts)
	if token := c.conn.Connect(); token.Wait() && token.Error() != nil {
		return nil, core.ErrDeviceUnreachable.
			WithMessage("could not connect to MQTT broker").
			WithCause(token.Error())
	}

	topic := fmt.Sprintf("device/%s/response", deviceID)
	token := c.conn.Subscribe(topic, 0, c.onResponse)
	if token.Wait() && token.Error() != nil {
		c.conn.Disconnect(250)
		return nil, core.ErrDeviceUnreachable.
			WithMessage(fmt.Sprintf("could not subscribe to %s", topic)).
			WithCause(token.Error())
	}

	logger.Info("connected to MQTT broker %s, listening on %s", cfg.BrokerURL, topic)
	return c, nil
}

// onResponse routes a device reply to the waiter registered for its ID.
// Replies for unknown IDs (late arrivals after a timeout) are dropped.
func (c *MQTTClient) onResponse(_ mqtt.Client, msg mqtt.Message) {
	var resp Response
	if err := json.Unmarshal(msg.Payload(), &resp); err != nil {
		logger.Warn("unparseable device response on %s: %v", msg.Topic(), err)
		return
	}

	c.pendingMu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		logger.Debug("dropping late response for command %s", resp.ID)
		return
	}
	ch <- &resp
}

// send publishes one command and waits for its reply. Serialized so that
// the device only ever sees one command at a time.
func (c *MQTTClient) send(ctx context.Context, cmd *Command) (*Response, error) {
	c.commandMu.Lock()
	defer c.commandMu.Unlock()

	if !c.conn.IsConnected() {
		return nil, core.ErrDeviceUnreachable.WithMessage("MQTT connection is down")
	}

	cmd.ID = uuid.NewString()
	cmd.DeviceID = c.deviceID
	cmd.Timestamp = time.Now().UnixMilli()

	ch := make(chan *Response, 1)
	c.pendingMu.Lock()
	c.pending[cmd.ID] = ch
	c.pendingMu.Unlock()

	cleanup := func() {
		c.pendingMu.Lock()
		delete(c.pending, cmd.ID)
		c.pendingMu.Unlock()
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		cleanup()
		return nil, err
	}

	topic := fmt.Sprintf("device/%s/command", c.deviceID)
	token := c.conn.Publish(topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		cleanup()
		return nil, core.ErrDeviceUnreachable.
			WithMessage("publish failed").
			WithCause(token.Error())
	}
	logger.Debug("published %s command %s to %s", cmd.Type, cmd.ID, topic)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Status == StatusError {
			return nil, core.ErrDeviceError.WithMessage(resp.Error)
		}
		return resp, nil
	case <-timer.C:
		cleanup()
		return nil, core.ErrDeviceUnreachable.
			WithMessage(fmt.Sprintf("device %s did not respond within %s", c.deviceID, c.timeout)).
			WithDetails(map[string]interface{}{"command": cmd.Type})
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}
}

// Screenshot captures the current screen as PNG bytes.
func (c *MQTTClient) Screenshot(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, &Command{Type: CommandScreenshot})
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(resp.Screenshot)
	if err != nil {
		return nil, core.ErrDeviceError.
			WithMessage("screenshot payload is not valid base64").
			WithCause(err)
	}
	return data, nil
}

// UIText fetches the UI hierarchy and extracts its text elements.
func (c *MQTTClient) UIText(ctx context.Context) ([]core.TextElement, error) {
	resp, err := c.send(ctx, &Command{Type: CommandHierarchy})
	if err != nil {
		return nil, err
	}

	elements, err := uitree.Extract(resp.Result)
	if err != nil {
		return nil, core.ErrDeviceError.
			WithMessage("device returned an unparseable UI hierarchy").
			WithCause(err)
	}
	return elements, nil
}

// Tap taps the screen at device pixel coordinates.
func (c *MQTTClient) Tap(ctx context.Context, x, y int) error {
	_, err := c.send(ctx, &Command{Type: CommandTap, X: x, Y: y})
	return err
}

// TypeText types text into the focused element.
func (c *MQTTClient) TypeText(ctx context.Context, text string) error {
	_, err := c.send(ctx, &Command{Type: CommandInput, Text: text})
	return err
}

// RunShell runs a shell command on the device.
func (c *MQTTClient) RunShell(ctx context.Context, command string) (string, error) {
	resp, err := c.send(ctx, &Command{Type: CommandShell, Command: command})
	if err != nil {
		return "", err
	}
	return resp.Result, nil
}

// Close disconnects from the broker.
func (c *MQTTClient) Close() {
	c.conn.Disconnect(250)
}
