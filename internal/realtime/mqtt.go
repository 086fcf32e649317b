package realtime

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/model"
)

// Kiosk-style players that cannot hold a websocket subscribe to the broker
// instead: per-device topic player/<deviceId>/commands plus a broadcast
// topic. The distributor mirrors every push here when a broker is configured.

const (
	deviceTopicFormat = "player/%s/commands"
	broadcastTopic    = "player/all/commands"
	disconnectQuiesce = 250 // ms
)

var mqttMessageHandler mqtt.MessageHandler = func(client mqtt.Client, msg mqtt.Message) {
	log.Debug().Str("topic", msg.Topic()).Msg("received mqtt message")
}

var mqttConnectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Info().Msg("connected to mqtt broker")
}

var mqttConnectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Error().Err(err).Msg("mqtt connection lost")
}

// MQTTMirror publishes content pushes to the broker. Satisfies Publisher.
type MQTTMirror struct {
	client mqtt.Client
}

func NewMQTTMirror(brokerURL, clientID string) (*MQTTMirror, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetDefaultPublishHandler(mqttMessageHandler)
	opts.OnConnect = mqttConnectHandler
	opts.OnConnectionLost = mqttConnectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}
	return &MQTTMirror{client: client}, nil
}

func (m *MQTTMirror) PublishToDevice(deviceID string, payload []byte) error {
	topic := fmt.Sprintf(deviceTopicFormat, deviceID)
	token := m.client.Publish(topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to device %s: %w", deviceID, token.Error())
	}
	return nil
}

func (m *MQTTMirror) PublishToAll(payload []byte) error {
	token := m.client.Publish(broadcastTopic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish broadcast: %w", token.Error())
	}
	return nil
}

func (m *MQTTMirror) Close() {
	m.client.Disconnect(disconnectQuiesce)
	log.Info().Msg("mqtt mirror disconnected")
}

func encodeEnvelope(env model.Envelope) ([]byte, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event", env.Event).Msg("failed to encode envelope")
		return nil, err
	}
	return payload, nil
}
