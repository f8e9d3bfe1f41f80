package sparkplug

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	spb "github.com/EvergenEnergy/sparkplughost/protobuf"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
)

// Config options for the Sparkplug client
type Config struct {
	BrokerURL string // e.g. tcp://broker:1883
	ClientID  string // MQTT client id; derived from the address when empty
	Username  string
	Password  string

	Address string // Sparkplug node address, "group/node"

	// Silent runs the client in monitor-only mode: no will is registered
	// and no birth certificate is ever published.
	Silent bool

	InstanceUUID uuid.UUID // instance identifier of this service node
	ServiceUUID  uuid.UUID // service function identifier
	ServiceURL   string    // HTTP URL advertised in the birth certificate

	// Device_Information identity metrics
	Manufacturer string
	Model        string
	Serial       string
}

// willMessage is the broker-published death certificate registered at
// connect time.
type willMessage struct {
	topic   string
	payload []byte
}

// transport is the narrow slice of an MQTT session the client needs.
type transport interface {
	Connect(ctx context.Context) error
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	Disconnect()
}

// transportOptions carries the session parameters that must be fixed before
// the connection is opened.
type transportOptions struct {
	will             *willMessage
	onConnect        func()
	onConnectionLost func(error)
}

type transportFactory func(cfg Config, opts transportOptions) (transport, error)

// Client maintains the Sparkplug session for this service node. There is one
// client per process; the sequence counter and connected flag are shared
// state guarded by mu.
type Client struct {
	cfg     Config
	address Address
	log     *slog.Logger

	newTransport transportFactory

	mu        sync.Mutex
	conn      transport
	connected bool
	seq       uint64
}

// Option represents a functional option for configuring the client
type Option func(*Client)

// WithLogger sets the logger for the client
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// withTransportFactory replaces the MQTT transport; used by tests.
func withTransportFactory(f transportFactory) Option {
	return func(c *Client) {
		c.newTransport = f
	}
}

// New creates a new Sparkplug client for the configured node address.
func New(cfg Config, options ...Option) (*Client, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("broker URL is required")
	}
	address, err := ParseAddress(cfg.Address)
	if err != nil {
		return nil, err
	}
	if address.IsDevice() {
		return nil, errors.New("the files service publishes as a node, not a device")
	}

	c := &Client{
		cfg:          cfg,
		address:      address,
		log:          slog.Default(),
		newTransport: newPahoTransport,
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

// Address returns the node address the client publishes under.
func (c *Client) Address() Address {
	return c.address
}

// Connect opens the broker session. Unless the client is silent, a DEATH
// will message is registered so the broker announces an unclean drop. The
// birth certificate is published from the connect callback.
func (c *Client) Connect(ctx context.Context) error {
	opts := transportOptions{
		onConnect:        c.onConnect,
		onConnectionLost: c.onConnectionLost,
	}
	if c.cfg.Silent {
		c.log.Debug("running in monitor-only mode")
	} else {
		payload, err := c.deathPayload()
		if err != nil {
			return err
		}
		opts.will = &willMessage{
			topic:   c.address.Topic(KindDeath).String(),
			payload: payload,
		}
	}

	conn, err := c.newTransport(c.cfg, opts)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	return conn.Connect(ctx)
}

// Close drops the broker session.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		conn.Disconnect()
	}
}

// PublishFileEntry announces a newly uploaded file as a DATA message.
// Callers must treat ErrNotConnected as non-fatal for the upload itself.
func (c *Client) PublishFileEntry(ctx context.Context, entry *filesvc.FileEntry) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		c.log.Error("MQTT client not connected")
		return filesvc.ErrNotConnected
	}

	c.log.Info("publishing file entry message", "file_uuid", entry.FileUUID)
	return c.publish(KindData, fileEntryDataMetrics(entry), false)
}

func (c *Client) onConnect() {
	c.log.Debug("connected to MQTT broker")
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	if err := c.rebirth(); err != nil {
		c.log.Error("failed to publish birth certificate", "error", err)
	}

	cmdTopic := c.address.Topic(KindCmd).String()
	if err := c.subscribe(cmdTopic); err != nil {
		c.log.Error("failed to subscribe to CMD topic", "topic", cmdTopic, "error", err)
	}
}

func (c *Client) onConnectionLost(err error) {
	c.log.Error("lost connection to MQTT broker", "error", err)
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	// Reconnection policy is the supervisor's job, not ours.
}

func (c *Client) subscribe(topic string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return filesvc.ErrNotConnected
	}
	return conn.Subscribe(topic, c.onMessage)
}

// rebirth publishes the full birth certificate. It runs on connect and again
// whenever a Node Control/Rebirth command arrives. The sequence counter reset
// happens inside publish, atomically with the birth emission.
func (c *Client) rebirth() error {
	if c.cfg.Silent {
		return nil
	}

	c.log.Debug("publishing birth certificate")
	return c.publish(KindBirth, c.birthMetrics(), true)
}

// birthMetrics assembles the node birth certificate: node control, service
// identity and the metric templates of every publishable entity type.
func (c *Client) birthMetrics() []*spb.Payload_Metric {
	metrics := []*spb.Payload_Metric{
		boolMetric("Node Control/Rebirth", false),

		stringMetric("Device_Information/Schema_UUID", schemaDeviceInformation),
		stringMetric("Device_Information/Instance_UUID", filesvc.DeviceInfoInstanceUUID),
		stringMetric("Device_Information/Manufacturer", c.cfg.Manufacturer),
		stringMetric("Device_Information/Model", c.cfg.Model),
		stringMetric("Device_Information/Serial", c.cfg.Serial),

		uuidMetric("Schema_UUID", schemaService),
		uuidMetric("Instance_UUID", c.cfg.InstanceUUID.String()),
		uuidMetric("Service_UUID", c.cfg.ServiceUUID.String()),
		stringMetric("Service_URL", c.cfg.ServiceURL),
	}
	return append(metrics, fileEntryBirthMetrics()...)
}

// publish encodes the metrics with the next sequence number and sends them.
// The counter runs 0-255 inclusive and wraps; a birth resets it to zero. The
// mutex is held across the transport send: sequence assignment and wire
// emission must be atomic, or concurrent publishes can reach the broker out
// of sequence order.
func (c *Client) publish(kind MessageKind, metrics []*spb.Payload_Metric, withUUID bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.log.Debug("can't publish without an MQTT connection")
		return filesvc.ErrNotConnected
	}

	if kind == KindBirth {
		c.seq = 0
	}
	payload := &spb.Payload{
		Timestamp: proto.Uint64(uint64(time.Now().UnixMilli())),
		Metrics:   metrics,
		Seq:       proto.Uint64(c.seq),
	}
	if c.seq < 255 {
		c.seq++
	} else {
		c.seq = 0
	}
	if withUUID {
		payload.Uuid = proto.String(FactoryPlusUUID)
	}

	data, err := proto.Marshal(payload)
	if err != nil {
		return err
	}
	return c.conn.Publish(c.address.Topic(kind).String(), data)
}

// deathPayload builds the will message body. It carries a timestamp but no
// sequence number.
func (c *Client) deathPayload() ([]byte, error) {
	return proto.Marshal(&spb.Payload{
		Timestamp: proto.Uint64(uint64(time.Now().UnixMilli())),
	})
}

func (c *Client) onMessage(topicstr string, payload []byte) {
	topic, err := ParseTopic(topicstr)
	if err != nil {
		c.log.Debug("ignoring message on unrecognised topic", "topic", topicstr, "error", err)
		return
	}

	var decoded spb.Payload
	if err := proto.Unmarshal(payload, &decoded); err != nil {
		c.log.Debug("bad payload on topic", "topic", topicstr, "error", err)
		return
	}

	switch topic.Kind {
	case KindBirth, KindDeath, KindData:
		// Reserved: the files service does not yet react to other
		// participants' lifecycles.
	case KindCmd:
		c.onCommand(topic.Address, &decoded)
	}
}

func (c *Client) onCommand(addr Address, payload *spb.Payload) {
	if !addr.Equals(c.address) {
		return
	}

	for _, metric := range payload.Metrics {
		switch parseCommand(metric.GetName()) {
		case commandRebirth:
			if err := c.rebirth(); err != nil {
				c.log.Error("rebirth failed", "error", err)
			}
		default:
			c.log.Debug("received unknown CMD", "metric", metric.GetName())
		}
	}
}

// command enumerates the node control commands the client understands.
type command int

const (
	commandUnknown command = iota
	commandRebirth
)

func parseCommand(name string) command {
	if name == "Node Control/Rebirth" {
		return commandRebirth
	}
	return commandUnknown
}
