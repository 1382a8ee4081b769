package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	AutoReconnect  bool
}

// Client is a thin wrapper around the paho client used to push registry
// events to the mobile clients.
type Client struct {
	client mqtt.Client
	config *Config
}

func NewClient(config *Config) *Client {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetAutoReconnect(config.AutoReconnect)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		zap.L().Info("mqtt client connected", zap.String("broker", config.Broker))
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		zap.L().Warn("mqtt connection lost", zap.Error(err))
	})

	return &Client{
		client: mqtt.NewClient(opts),
		config: config,
	}
}

// Connect establishes a connection to the MQTT broker.
func (c *Client) Connect() error {
	token := c.client.Connect()
	token.Wait()

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return nil
}

// Publish publishes a message to a topic.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

// Disconnect closes the connection, allowing in-flight messages to drain.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// IsConnected reports the connection state.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}
