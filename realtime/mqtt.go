package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisherConfig описывает подключение к брокеру.
type MQTTPublisherConfig struct {
	BrokerHost     string
	BrokerPort     int
	ClientID       string
	ConnectTimeout time.Duration
}

// MQTTPublisher публикует конверты в MQTT-брокер. Соединение живёт столько
// же, сколько процесс, и переустанавливается библиотекой автоматически;
// пока брокер недоступен, Publish деградирует до логируемого no-op.
type MQTTPublisher struct {
	client mqtt.Client
	logger *slog.Logger
}

func NewMQTTPublisher(cfg MQTTPublisherConfig, logger *slog.Logger) *MQTTPublisher {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.BrokerHost, cfg.BrokerPort)).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(10 * time.Second).
		SetOrderMatters(true)

	opts.OnConnect = func(_ mqtt.Client) {
		logger.Info("connected to MQTT broker",
			slog.String("host", cfg.BrokerHost), slog.Int("port", cfg.BrokerPort))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	client := mqtt.NewClient(opts)

	// Не ждём успеха соединения: при недоступном брокере клиент продолжит
	// попытки в фоне, а публикации в это время деградируют до no-op.
	token := client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			logger.Warn("initial MQTT connect failed, retrying in background",
				slog.Any("error", token.Error()))
		}
	}()

	return &MQTTPublisher{client: client, logger: logger}
}

func (p *MQTTPublisher) Publish(topic Topic, envelope Envelope) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error("failed to marshal event envelope",
			slog.String("topic", topic.Name), slog.Any("error", err))
		return
	}

	if !p.client.IsConnectionOpen() {
		p.logger.Warn("MQTT broker unreachable, dropping publish",
			slog.String("topic", topic.Name), slog.String("event", string(envelope.Event)))
		return
	}

	token := p.client.Publish(topic.Name, topic.QoS, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			p.logger.Warn("MQTT publish failed",
				slog.String("topic", topic.Name),
				slog.String("event", string(envelope.Event)),
				slog.Any("error", token.Error()))
		}
	}()
}

// Close корректно завершает соединение с брокером.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
