package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalhub/config"
	"vitalhub/log"
	"vitalhub/models"
	"vitalhub/services"

	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger := log.GetInstance()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Patient monitor hub starting",
		zap.String("app_host", cfg.AppHost),
		zap.Int("app_port", cfg.AppPort),
		zap.Int("udp_port", cfg.UDPPort),
		zap.Int("tcp_port", cfg.TCPPort),
		zap.Int("alert_ring_capacity", cfg.AlertRingCapacity),
		zap.Duration("stats_interval", cfg.StatsInterval),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core state and fan-out hub
	info := models.CNInfo{
		UDPPort: cfg.UDPPort,
		TCPPort: cfg.TCPPort,
		WSPort:  cfg.AppPort,
	}
	store := services.NewStateStore(cfg.AlertRingCapacity)
	hub := services.NewHub(store, info, logger)

	// Ingestors: bind failures are fatal before anything starts serving
	udpIngestor := services.NewUDPIngestor(store, hub, logger)
	if err := udpIngestor.Start(ctx, cfg.UDPHost, cfg.UDPPort); err != nil {
		logger.Fatal("Failed to start UDP ingestor", zap.Error(err))
	}

	tcpIngestor := services.NewTCPIngestor(store, hub, logger)

	// Optional Telegram notifier for high-severity alerts
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier, err := services.NewTelegramNotifier(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
		}
		tcpIngestor.AddAlertSink(notifier)
		if err := notifier.SendStartupMessage(); err != nil {
			logger.Warn("Failed to send startup message", zap.Error(err))
		}
	}

	// Optional AMQP alert sink
	if cfg.AMQPURL != "" {
		sink, err := services.NewAMQPSink(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize AMQP sink", zap.Error(err))
		}
		defer sink.Close()
		tcpIngestor.AddAlertSink(sink)
	}

	if err := tcpIngestor.Start(ctx, cfg.TCPHost, cfg.TCPPort); err != nil {
		logger.Fatal("Failed to start TCP ingestor", zap.Error(err))
	}

	// Optional MQTT telemetry ingest bridge
	if cfg.MQTTBroker != "" {
		mqttIngestor := services.NewMQTTIngestor(cfg, store, hub, logger)
		if err := mqttIngestor.Start(ctx); err != nil {
			logger.Fatal("Failed to start MQTT ingest bridge", zap.Error(err))
		}
	}

	// Periodic operational stats
	statsEmitter := services.NewStatsEmitter(hub, tcpIngestor, info, cfg.StatsInterval, logger)
	go statsEmitter.Run(ctx)

	// Dashboard + viewer websocket endpoint
	webServer := services.NewWebServer(hub, cfg.StaticDir, cfg.SessionSendBuffer, logger)
	if err := webServer.Start(cfg.AppHost, cfg.AppPort); err != nil {
		logger.Fatal("Failed to start web server", zap.Error(err))
	}

	logger.Info("Patient monitor hub started, relaying telemetry")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping services")

	// Stop ingestion first, then reject and drain viewers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Web server shutdown incomplete", zap.Error(err))
	}

	logger.Info("Patient monitor hub stopped")
}
