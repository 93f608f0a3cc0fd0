package publisher

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher wraps a Paho MQTT client. Messages are retained so a board
// that connects late sees the current state at once.
type MQTTPublisher struct {
	client      mqtt.Client
	qos         byte
	statusTopic string
}

// MQTTOptions configures the MQTT publisher. When StatusTopic is set the
// publisher announces "online" there and leaves "offline" as its will.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	QoS         byte
	StatusTopic string
}

// NewMQTTPublisher creates and connects an MQTT publisher.
func NewMQTTPublisher(opts MQTTOptions) (*MQTTPublisher, error) {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second)
	if opts.StatusTopic != "" {
		clientOpts.SetWill(opts.StatusTopic, "offline", opts.QoS, true)
	}

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", opts.Broker, err)
	}

	p := &MQTTPublisher{
		client:      client,
		qos:         opts.QoS,
		statusTopic: opts.StatusTopic,
	}
	if p.statusTopic != "" {
		if err := p.Publish(context.Background(), p.statusTopic, []byte("online")); err != nil {
			client.Disconnect(250)
			return nil, fmt.Errorf("announcing status: %w", err)
		}
	}
	return p, nil
}

// Publish sends a retained message and waits for the broker or ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, true, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("publishing %s: %w", topic, ctx.Err())
	}
}

func (p *MQTTPublisher) Close() error {
	if p.statusTopic != "" {
		p.client.Publish(p.statusTopic, p.qos, true, []byte("offline")).WaitTimeout(time.Second)
	}
	p.client.Disconnect(1000)
	return nil
}
