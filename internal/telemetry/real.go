package telemetry

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client   paho.Client
	deviceID string
	timeout  time.Duration
}

// NewRealPublisher connects to the broker. The client keeps
// reconnecting on its own; the initial connect only waits out the
// configured timeout before giving up.
func NewRealPublisher(broker, deviceID, clientID string, timeout time.Duration) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			log.Info().Str("broker", broker).Msg("telemetry broker connected")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("telemetry broker connection lost")
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{client: client, deviceID: deviceID, timeout: timeout}, nil
}

// PublishState sends the retained state snapshot at QoS 0. The latest
// snapshot is the only one that matters, so a lost one is fine.
func (p *RealPublisher) PublishState(s State) error {
	payload, err := FormatState(s)
	if err != nil {
		return fmt.Errorf("format state: %w", err)
	}

	token := p.client.Publish(StateTopic(p.deviceID), 0, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish state timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}
	return nil
}

// PublishEvent sends a one-off event at QoS 1.
func (p *RealPublisher) PublishEvent(e Event) error {
	payload, err := FormatEvent(e)
	if err != nil {
		return fmt.Errorf("format event: %w", err)
	}

	token := p.client.Publish(EventTopic(p.deviceID), 1, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish event timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
