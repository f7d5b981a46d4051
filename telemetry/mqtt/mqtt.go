// Package mqtt optionally publishes bridge status and per-bulb
// state-change events over MQTT. It is grounded directly on the teacher
// pack's internal/mqtt client: the same Connect/forwardEvents/
// publishStatus(retained) shape, re-targeted at bulb state changes
// instead of DMX channel state. Unlike the teacher's client it has no
// incoming command topic — this bridge has no remote-control surface
// (§3 Non-goals: no admin/control API).
package mqtt

import (
	"encoding/json"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/pjlighting/artwiz-bridge/wiz"
)

// Config configures the optional MQTT telemetry publisher.
type Config struct {
	Broker   string
	ClientID string
	Topic    string // base topic; status/event are published under it
	Username string
	Password string
}

// Event is one bulb state-change notification.
type Event struct {
	MAC     string         `json:"mac"`
	Vector  wiz.SlotVector `json:"vector"`
	Applied bool           `json:"applied"`
}

// StatusMessage is the retained status payload.
type StatusMessage struct {
	Type string `json:"type"`
	Data Status `json:"data"`
}

// Status is a coarse bridge-health summary.
type Status struct {
	BulbCount      int    `json:"bulb_count"`
	FramesAccepted uint64 `json:"frames_accepted"`
	FramesDropped  uint64 `json:"frames_dropped"`
}

// Client wraps a paho MQTT client and forwards bridge events over it.
type Client struct {
	cfg      Config
	logger   *slog.Logger
	client   paho.Client
	events   chan Event
	stopChan chan struct{}
}

// NewClient creates a Client; call Start to connect.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = "artwiz-bridge"
	}
	if cfg.Topic == "" {
		cfg.Topic = "artwiz/bridge"
	}

	return &Client{
		cfg:      cfg,
		logger:   logger,
		events:   make(chan Event, 64),
		stopChan: make(chan struct{}),
	}
}

// Start connects to the broker and begins forwarding events.
func (c *Client) Start() error {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}

	go c.forwardEvents()

	c.logger.Info("MQTT telemetry started", "broker", c.cfg.Broker, "topic", c.cfg.Topic)
	return nil
}

// Stop disconnects from the broker.
func (c *Client) Stop() {
	close(c.stopChan)
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(1000)
	}
	c.logger.Info("MQTT telemetry stopped")
}

// Publish enqueues a bulb state-change event for forwarding. Non-blocking:
// if the buffer is full the event is dropped, since telemetry is
// best-effort and must never back-pressure the send pipeline.
func (c *Client) Publish(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("MQTT telemetry buffer full, dropping event", "mac", ev.MAC)
	}
}

func (c *Client) onConnect(client paho.Client) {
	c.logger.Info("MQTT connected")
}

func (c *Client) onConnectionLost(client paho.Client, err error) {
	c.logger.Warn("MQTT connection lost", "error", err)
}

func (c *Client) forwardEvents() {
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			c.publishEvent(ev)
		case <-c.stopChan:
			return
		}
	}
}

func (c *Client) publishEvent(ev Event) {
	if c.client == nil || !c.client.IsConnected() {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	topic := c.cfg.Topic + "/event"
	c.client.Publish(topic, 0, false, data)
}

// OnSent implements bulb.Observer, forwarding committed sends as events.
func (c *Client) OnSent(mac string, v wiz.SlotVector, applied bool) {
	c.Publish(Event{MAC: mac, Vector: v, Applied: applied})
}

// OnQueueDepth implements bulb.Observer. Queue depth is metrics-only
// telemetry; this client only forwards send events and status snapshots.
func (c *Client) OnQueueDepth(mac string, depth int) {}

// OnDropped implements bulb.Observer. See OnQueueDepth.
func (c *Client) OnDropped(mac string) {}

// OnOffVerifyRetry implements bulb.Observer. See OnQueueDepth.
func (c *Client) OnOffVerifyRetry(mac string, attempt int) {}

// PublishStatus publishes a retained status snapshot. Called from the
// bridge's stats ticker via bridge.StatusHook, mirroring the teacher's
// forwardEvents/publishStatus(retained) pattern.
func (c *Client) PublishStatus(status Status) {
	if c.client == nil || !c.client.IsConnected() {
		return
	}
	data, err := json.Marshal(StatusMessage{Type: "status", Data: status})
	if err != nil {
		return
	}
	topic := c.cfg.Topic + "/status"
	c.client.Publish(topic, 0, true, data)
}
