package services

import (
	"testing"
	"time"

	"vitalhub/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newOfflineNotifier() *TelegramNotifier {
	// No bot: only the paths that never reach the Telegram API
	return &TelegramNotifier{
		logger:         zap.NewNop(),
		lastAlertTimes: make(map[string]time.Time),
	}
}

func TestTelegramNotifier_IgnoresNonHighSeverity(t *testing.T) {
	tn := newOfflineNotifier()

	for _, severity := range []models.AlertSeverity{models.SeverityLow, models.SeverityMedium} {
		err := tn.PublishAlert(&models.AlertMessage{
			PatientID: "p1",
			Timestamp: 1000,
			Type:      models.AlertFever,
			Message:   "Detected fever",
			Severity:  severity,
		})
		assert.NoError(t, err)
	}
}

func TestTelegramNotifier_Throttling(t *testing.T) {
	tn := newOfflineNotifier()

	assert.False(t, tn.shouldThrottle("p1"))

	tn.lastAlertTimes["p1"] = time.Now()
	assert.True(t, tn.shouldThrottle("p1"))
	assert.False(t, tn.shouldThrottle("p2"), "throttling is per patient")

	tn.lastAlertTimes["p1"] = time.Now().Add(-alertThrottleWindow - time.Second)
	assert.False(t, tn.shouldThrottle("p1"))
}

func TestTelegramNotifier_FormatAlertMessage(t *testing.T) {
	tn := newOfflineNotifier()

	msg := tn.formatAlertMessage(&models.AlertMessage{
		PatientID: "patient-007",
		Timestamp: 1700000000,
		Type:      models.AlertHypoxia,
		Message:   "Detected hypoxia",
		Severity:  models.SeverityHigh,
	})

	assert.Contains(t, msg, "patient-007")
	assert.Contains(t, msg, "Hypoxia (low SpO2)")
	assert.Contains(t, msg, "Detected hypoxia")
	assert.Contains(t, msg, "HIGH")
}
