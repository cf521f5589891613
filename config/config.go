package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP + WebSocket listener (dashboard viewers)
	AppHost string
	AppPort int

	// UDP vitals listener
	UDPHost string
	UDPPort int

	// TCP alert-stream listener
	TCPHost string
	TCPPort int

	// Static dashboard assets
	StaticDir string

	// Hub behaviour
	StatsInterval     time.Duration
	AlertRingCapacity int
	SessionSendBuffer int

	// Optional Telegram notifier for high-severity alerts
	TelegramBotToken string
	TelegramChatID   string

	// Optional MQTT telemetry ingest bridge
	MQTTBroker   string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string

	// Optional AMQP alert sink
	AMQPURL      string
	AMQPExchange string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		AppHost:           getEnv("APP_HOST", "0.0.0.0"),
		AppPort:           getEnvInt("APP_PORT", 8000),
		UDPHost:           getEnv("UDP_HOST", "0.0.0.0"),
		UDPPort:           getEnvInt("UDP_PORT", 9999),
		TCPHost:           getEnv("TCP_HOST", "0.0.0.0"),
		TCPPort:           getEnvInt("TCP_PORT", 9998),
		StaticDir:         getEnv("STATIC_DIR", "web"),
		StatsInterval:     getEnvDuration("STATS_INTERVAL", 5*time.Second),
		AlertRingCapacity: getEnvInt("ALERT_RING_CAPACITY", 20),
		SessionSendBuffer: getEnvInt("SESSION_SEND_BUFFER", 64),
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:    getEnv("TELEGRAM_CHAT_ID", ""),
		MQTTBroker:        getEnv("MQTT_BROKER", ""),
		MQTTTopic:         getEnv("MQTT_TOPIC", "vitals/telemetry"),
		MQTTUsername:      getEnv("MQTT_USERNAME", ""),
		MQTTPassword:      getEnv("MQTT_PASSWORD", ""),
		AMQPURL:           getEnv("AMQP_URL", ""),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "clinical.alerts"),
	}

	if config.AlertRingCapacity <= 0 {
		return nil, fmt.Errorf("ALERT_RING_CAPACITY must be positive, got %d", config.AlertRingCapacity)
	}
	if config.StatsInterval <= 0 {
		return nil, fmt.Errorf("STATS_INTERVAL must be positive, got %s", config.StatsInterval)
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare numbers are treated as seconds
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}
