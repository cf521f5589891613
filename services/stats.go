package services

import (
	"context"
	"time"

	"vitalhub/models"

	"go.uber.org/zap"
)

// ConnectionCounter exposes the live alert-source connection gauge.
type ConnectionCounter interface {
	ConnectionCount() int
}

// StatsEmitter broadcasts a small operational-status message on a fixed
// cadence for the lifetime of the process.
type StatsEmitter struct {
	hub      *Hub
	counter  ConnectionCounter
	info     models.CNInfo
	interval time.Duration
	logger   *zap.Logger
}

func NewStatsEmitter(hub *Hub, counter ConnectionCounter, info models.CNInfo, interval time.Duration, logger *zap.Logger) *StatsEmitter {
	return &StatsEmitter{
		hub:      hub,
		counter:  counter,
		info:     info,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, emitting one cn_stats broadcast per tick.
func (e *StatsEmitter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("Stats emitter started", zap.Duration("interval", e.interval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stats emitter stopped")
			return
		case <-ticker.C:
			e.hub.Broadcast(e.buildStats())
		}
	}
}

func (e *StatsEmitter) buildStats() models.Envelope {
	return models.NewCNStatsEnvelope(models.CNStats{
		UDPPort:        e.info.UDPPort,
		TCPPort:        e.info.TCPPort,
		WSPort:         e.info.WSPort,
		TCPConnections: e.counter.ConnectionCount(),
	})
}
