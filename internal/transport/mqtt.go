package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"agent-fleettrack/internal/track"
)

var newMQTTClient = mqtt.NewClient

// MQTT publishes location messages to the fleet broker. Reconnection is
// delegated to the paho client; the tracker only sees the
// connect/connection-lost events.
type MQTT struct {
	broker   string
	topic    string
	clientID string

	mu     sync.Mutex
	client mqtt.Client
}

func NewMQTT(broker, topic, clientID string) *MQTT {
	return &MQTT{broker: broker, topic: topic, clientID: clientID}
}

func (m *MQTT) Connect(_ context.Context, token string, events track.TransportEvents) error {
	m.mu.Lock()
	if m.client != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	opts := mqtt.NewClientOptions().
		AddBroker(m.broker).
		SetClientID(m.clientID).
		SetUsername(m.clientID).
		SetPassword(token).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			if events.OnDisconnect != nil {
				events.OnDisconnect(err.Error())
			}
		}).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			if events.OnError != nil {
				events.OnError(errors.New("mqtt reconnecting"))
			}
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			if events.OnConnect != nil {
				events.OnConnect()
			}
		})

	client := newMQTTClient(opts)
	if tok := client.Connect(); tok.Wait() && tok.Error() != nil {
		return tok.Error()
	}

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
	return nil
}

func (m *MQTT) Disconnect() {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()
	if client != nil {
		client.Disconnect(250)
	}
}

func (m *MQTT) SendLocation(vehicleID string, s track.Sample) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		return errors.New("mqtt client not connected")
	}

	payload, err := json.Marshal(payloadFrom(vehicleID, s))
	if err != nil {
		return err
	}

	tok := client.Publish(m.topic, 0, false, payload)
	tok.Wait()
	return tok.Error()
}
