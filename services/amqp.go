package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vitalhub/config"
	"vitalhub/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPSink publishes every accepted alert to a durable topic exchange so
// downstream hospital systems (paging, audit, analytics) can consume them.
// Routing key is "alert.<severity>".
type AMQPSink struct {
	config  *config.Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

func NewAMQPSink(cfg *config.Config, logger *zap.Logger) (*AMQPSink, error) {
	sink := &AMQPSink{
		config: cfg,
		logger: logger,
	}
	if err := sink.connect(); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *AMQPSink) connect() error {
	var err error

	s.logger.Info("Connecting to RabbitMQ", zap.String("url", s.config.AMQPURL))

	maxRetries := 5
	for attempt := 1; attempt <= maxRetries; attempt++ {
		s.conn, err = amqp.Dial(s.config.AMQPURL)
		if err == nil {
			break
		}

		s.logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
	}

	s.channel, err = s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	err = s.channel.ExchangeDeclare(
		s.config.AMQPExchange, // name
		"topic",               // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	s.logger.Info("Exchange declared", zap.String("exchange", s.config.AMQPExchange))
	return nil
}

// PublishAlert forwards one alert to the exchange. Failures are returned to
// the caller, which logs and moves on; ingestion never blocks on the broker.
func (s *AMQPSink) PublishAlert(alert *models.AlertMessage) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = s.channel.PublishWithContext(ctx,
		s.config.AMQPExchange,
		"alert."+string(alert.Severity),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}

// Close shuts down the channel and connection.
func (s *AMQPSink) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
