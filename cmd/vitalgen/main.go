package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalhub/models"

	"go.uber.org/zap"
)

var (
	server      = flag.String("server", "127.0.0.1", "Hub IP or hostname")
	udpPort     = flag.Int("udp-port", 9999, "UDP telemetry port")
	tcpPort     = flag.Int("tcp-port", 9998, "TCP alerts port")
	patientID   = flag.String("patient", "patient-001", "Patient identifier")
	interval    = flag.Duration("interval", time.Second, "Telemetry send interval")
	alertPeriod = flag.Duration("alert-period", 15*time.Second, "Time between alert evaluations")
)

// VitalsGenerator synthesizes plausible vitals around healthy baselines with
// a normal spread, clamped to the ranges a real sensor would emit.
type VitalsGenerator struct {
	patientID string
	logger    *zap.Logger
	last      *models.VitalSigns
}

func NewVitalsGenerator(patientID string, logger *zap.Logger) *VitalsGenerator {
	return &VitalsGenerator{
		patientID: patientID,
		logger:    logger,
	}
}

// GenerateVitals produces one vitals snapshot and remembers it for the alert
// evaluator.
func (g *VitalsGenerator) GenerateVitals() models.VitalSigns {
	vitals := models.VitalSigns{
		HeartRate:        clampInt(int(rand.NormFloat64()*8+78), 40, 180),
		SpO2:             clampFloat(round1(rand.NormFloat64()*1.0+97.5), 80.0, 100.0),
		BloodPressureSys: clampInt(int(rand.NormFloat64()*10+118), 80, 220),
		BloodPressureDia: clampInt(int(rand.NormFloat64()*8+76), 40, 140),
		Temperature:      clampFloat(round1(rand.NormFloat64()*0.3+36.8), 34.0, 41.0),
		RespirationRate:  clampInt(int(rand.NormFloat64()*2+16), 8, 40),
	}
	g.last = &vitals
	return vitals
}

// CheckAlerts derives alert conditions from the last generated vitals. The
// 0.8 baseline probability keeps the dashboard busy even with healthy vitals.
func (g *VitalsGenerator) CheckAlerts() []models.AlertMessage {
	if g.last == nil {
		return nil
	}
	now := float64(time.Now().UnixNano()) / float64(time.Second)
	var alerts []models.AlertMessage

	if rand.Float64() < 0.8 || g.last.Temperature > 38.0 {
		alerts = append(alerts, models.AlertMessage{
			PatientID: g.patientID,
			Timestamp: now,
			Type:      models.AlertFever,
			Message:   "Detected fever",
			Severity:  randomSeverity(),
		})
	}
	if rand.Float64() < 0.8 || g.last.SpO2 < 90.0 {
		severity := randomSeverity()
		if g.last.SpO2 < 85 {
			severity = models.SeverityHigh
		}
		alerts = append(alerts, models.AlertMessage{
			PatientID: g.patientID,
			Timestamp: now,
			Type:      models.AlertHypoxia,
			Message:   "Detected hypoxia",
			Severity:  severity,
		})
	}
	if rand.Float64() < 0.8 || g.last.HeartRate > 100 {
		alerts = append(alerts, models.AlertMessage{
			PatientID: g.patientID,
			Timestamp: now,
			Type:      models.AlertTachycardia,
			Message:   "Detected tachycardia",
			Severity:  randomSeverity(),
		})
	}
	if rand.Float64() < 0.8 || g.last.BloodPressureSys > 140 || g.last.BloodPressureDia > 90 {
		alerts = append(alerts, models.AlertMessage{
			PatientID: g.patientID,
			Timestamp: now,
			Type:      models.AlertHypertension,
			Message:   "Detected hypertension",
			Severity:  randomSeverity(),
		})
	}
	return alerts
}

func randomSeverity() models.AlertSeverity {
	switch rand.Intn(3) {
	case 0:
		return models.SeverityLow
	case 1:
		return models.SeverityMedium
	default:
		return models.SeverityHigh
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Patient telemetry generator started",
		zap.String("patient_id", *patientID),
		zap.String("server", *server),
		zap.Int("udp_port", *udpPort),
		zap.Int("tcp_port", *tcpPort),
		zap.Duration("interval", *interval),
		zap.Duration("alert_period", *alertPeriod),
	)
	logger.Info("Press Ctrl+C to stop gracefully")

	udpConn, err := net.Dial("udp", fmt.Sprintf("%s:%d", *server, *udpPort))
	if err != nil {
		logger.Fatal("Failed to open UDP socket", zap.Error(err))
	}
	defer udpConn.Close()

	tcpConn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", *server, *tcpPort))
	if err != nil {
		logger.Fatal("Failed to connect to TCP alert port", zap.Error(err))
	}
	defer tcpConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping generator")
		cancel()
	}()

	gen := NewVitalsGenerator(*patientID, logger)

	telemetryTicker := time.NewTicker(*interval)
	defer telemetryTicker.Stop()
	alertTicker := time.NewTicker(*alertPeriod)
	defer alertTicker.Stop()

	sentTelemetry := 0
	sentAlerts := 0
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			elapsed := time.Since(startTime)
			logger.Info("Generator stopped",
				zap.Int("telemetry_sent", sentTelemetry),
				zap.Int("alerts_sent", sentAlerts),
				zap.Duration("uptime", elapsed))
			return

		case <-telemetryTicker.C:
			payload := models.TelemetryMessage{
				PatientID: *patientID,
				Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
				Vitals:    gen.GenerateVitals(),
			}
			data, err := json.Marshal(&payload)
			if err != nil {
				logger.Error("Failed to marshal telemetry", zap.Error(err))
				continue
			}
			if _, err := udpConn.Write(data); err != nil {
				logger.Error("Failed to send telemetry datagram", zap.Error(err))
				continue
			}
			sentTelemetry++
			if sentTelemetry%100 == 0 {
				logger.Info("Telemetry progress",
					zap.Int("telemetry_sent", sentTelemetry),
					zap.Int("alerts_sent", sentAlerts),
					zap.Float64("rate", float64(sentTelemetry)/time.Since(startTime).Seconds()))
			}

		case <-alertTicker.C:
			for _, alert := range gen.CheckAlerts() {
				data, err := json.Marshal(&alert)
				if err != nil {
					logger.Error("Failed to marshal alert", zap.Error(err))
					continue
				}
				if _, err := tcpConn.Write(append(data, '\n')); err != nil {
					logger.Fatal("Failed to send alert line", zap.Error(err))
				}
				sentAlerts++
				logger.Debug("Alert sent",
					zap.String("type", alert.Type),
					zap.String("severity", string(alert.Severity)))
			}
		}
	}
}
