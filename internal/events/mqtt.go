package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentflow/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher publishes each event as JSON on <prefix>/<type>.
type MQTTPublisher struct {
	client  mqtt.Client
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTTClient connects to the broker in cfg.
func NewMQTTClient(cfg *config.MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

func NewMQTTPublisher(client mqtt.Client, prefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, qos: qos, timeout: 5 * time.Second}
}

func (p *MQTTPublisher) Topic(t Type) string {
	return p.prefix + "/" + string(t)
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	topic := p.Topic(ev.Type)
	token := p.client.Publish(topic, p.qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("publish to topic %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
