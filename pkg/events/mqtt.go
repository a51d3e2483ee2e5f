package events

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Config holds MQTT broker connection settings.
type Config struct {
	// BrokerURL is the MQTT broker URL (e.g. "tcp://localhost:1883").
	BrokerURL string
	// ClientID is the unique identifier for this client.
	ClientID string
	// Username for broker authentication (optional).
	Username string
	// Password for broker authentication (optional).
	Password string
	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration
}

// MQTTPublisher publishes transaction events to an MQTT broker with
// automatic reconnection.
type MQTTPublisher struct {
	client mqtt.Client
	logger *zap.Logger
}

// NewMQTTPublisher creates and connects a broker-backed publisher.
func NewMQTTPublisher(config *Config, logger *zap.Logger) (*MQTTPublisher, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.BrokerURL)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(5 * time.Minute)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Error("Event broker connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("Event broker connected", zap.String("broker", config.BrokerURL))
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, fmt.Errorf("event broker connection timeout after %v", config.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to event broker: %w", err)
	}

	return &MQTTPublisher{
		client: client,
		logger: logger.With(zap.String("component", "events")),
	}, nil
}

// PublishTransaction serializes the event and publishes it at QoS 1.
// Failures are logged, never returned: the ledger is the source of truth.
func (p *MQTTPublisher) PublishTransaction(evt *TransactionEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("Failed to marshal transaction event", zap.Error(err))
		return
	}

	topic := TopicFor(evt.Kind)
	token := p.client.Publish(topic, 1, false, payload)
	token.Wait()

	if err := token.Error(); err != nil {
		p.logger.Error("Failed to publish transaction event",
			zap.String("topic", topic),
			zap.Int64("transaction_id", evt.TransactionID),
			zap.Error(err))
		return
	}

	p.logger.Debug("Transaction event published",
		zap.String("topic", topic),
		zap.Int64("transaction_id", evt.TransactionID))
}

// Close disconnects from the broker with a short grace period.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
