package services

import (
	"context"
	"fmt"
	"time"

	"vitalhub/config"
	"vitalhub/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MQTTIngestor is an alternate telemetry source for wards whose sensor fleet
// publishes to a broker instead of emitting datagrams. Payloads use the same
// JSON schema as the UDP wire format and flow through the same validate,
// upsert and fan-out path.
type MQTTIngestor struct {
	store  *StateStore
	hub    *Hub
	topic  string
	logger *zap.Logger
	client mqtt.Client
}

func NewMQTTIngestor(cfg *config.Config, store *StateStore, hub *Hub, logger *zap.Logger) *MQTTIngestor {
	ingestor := &MQTTIngestor{
		store:  store,
		hub:    hub,
		topic:  cfg.MQTTTopic,
		logger: logger,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.MQTTBroker))
	opts.SetClientID("vitalhub-" + uuid.NewString()[:8])
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))
		if token := client.Subscribe(ingestor.topic, 0, ingestor.handleMessage); token.Wait() && token.Error() != nil {
			logger.Error("Failed to subscribe to telemetry topic",
				zap.String("topic", ingestor.topic), zap.Error(token.Error()))
		} else {
			logger.Info("Subscribed to telemetry topic", zap.String("topic", ingestor.topic))
		}
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	ingestor.client = mqtt.NewClient(opts)
	return ingestor
}

// Start connects to the broker; the subscription is (re)established by the
// OnConnect handler. Disconnects when ctx is cancelled.
func (m *MQTTIngestor) Start(ctx context.Context) error {
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	go func() {
		<-ctx.Done()
		m.client.Disconnect(250)
		m.logger.Info("MQTT ingest bridge stopped")
	}()

	return nil
}

func (m *MQTTIngestor) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	telemetry, err := decodeTelemetry(msg.Payload())
	if err != nil {
		m.logger.Debug("Dropping malformed MQTT telemetry", zap.Error(err))
		return
	}

	m.store.UpsertVitals(telemetry)
	m.hub.Broadcast(models.NewTelemetryEnvelope(telemetry))
}
