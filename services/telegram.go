package services

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"vitalhub/config"
	"vitalhub/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// alertThrottleWindow suppresses repeat notifications for the same patient.
const alertThrottleWindow = 15 * time.Second

// TelegramNotifier forwards high-severity clinical alerts to the nursing
// staff chat. It is an AlertSink; low and medium severities stay on the
// dashboard only.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger

	mu             sync.Mutex
	lastAlertTimes map[string]time.Time // per patient
}

func NewTelegramNotifier(cfg *config.Config, logger *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.TelegramChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing chat ID: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	return &TelegramNotifier{
		bot:            bot,
		chatID:         chatID,
		logger:         logger,
		lastAlertTimes: make(map[string]time.Time),
	}, nil
}

// PublishAlert sends a formatted notification for high-severity alerts,
// throttled per patient.
func (tn *TelegramNotifier) PublishAlert(alert *models.AlertMessage) error {
	if alert.Severity != models.SeverityHigh {
		return nil
	}
	if tn.shouldThrottle(alert.PatientID) {
		tn.logger.Debug("Throttling alert notification",
			zap.String("patient_id", alert.PatientID))
		return nil
	}

	msg := tgbotapi.NewMessage(tn.chatID, tn.formatAlertMessage(alert))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := tn.bot.Send(msg); err != nil {
		return fmt.Errorf("error sending telegram message: %w", err)
	}

	tn.mu.Lock()
	tn.lastAlertTimes[alert.PatientID] = time.Now()
	tn.mu.Unlock()

	tn.logger.Info("Sent alert notification",
		zap.String("patient_id", alert.PatientID),
		zap.String("alert_type", alert.Type))
	return nil
}

func (tn *TelegramNotifier) shouldThrottle(patientID string) bool {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	last, exists := tn.lastAlertTimes[patientID]
	if !exists {
		return false
	}
	return time.Since(last) < alertThrottleWindow
}

func (tn *TelegramNotifier) formatAlertMessage(alert *models.AlertMessage) string {
	var sb strings.Builder

	sb.WriteString("🚨 <b>CLINICAL ALERT</b> 🚨\n\n")
	sb.WriteString(fmt.Sprintf("🛏️ <b>Patient:</b> %s\n", alert.PatientID))
	sb.WriteString(fmt.Sprintf("🕐 <b>Time:</b> %s\n", time.Unix(int64(alert.Timestamp), 0).Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("⚠️ <b>Condition:</b> %s\n", tn.alertTitle(alert.Type)))
	sb.WriteString(fmt.Sprintf("   └ %s\n\n", alert.Message))
	sb.WriteString("🔴 <b>Severity:</b> HIGH — immediate attention required")

	return sb.String()
}

func (tn *TelegramNotifier) alertTitle(alertType string) string {
	switch alertType {
	case models.AlertFever:
		return "Fever"
	case models.AlertHypoxia:
		return "Hypoxia (low SpO2)"
	case models.AlertTachycardia:
		return "Tachycardia"
	case models.AlertHypertension:
		return "Hypertension"
	default:
		return alertType
	}
}

// SendStartupMessage announces the hub coming online.
func (tn *TelegramNotifier) SendStartupMessage() error {
	message := "🟢 <b>Patient Monitor Hub Started</b>\n\n" +
		"📡 Telemetry and alert listeners are up\n" +
		"🤖 High-severity notifications active"

	msg := tgbotapi.NewMessage(tn.chatID, message)
	msg.ParseMode = "HTML"
	_, err := tn.bot.Send(msg)
	return err
}
