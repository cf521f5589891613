package models

import (
	"fmt"
)

// AlertSeverity is the clinical urgency of an alert.
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// Well-known alert categories emitted by the condition detectors. The hub
// relays any category string; these are the ones the dashboard knows icons for.
const (
	AlertFever        = "fever"
	AlertHypoxia      = "hypoxia"
	AlertTachycardia  = "tachycardia"
	AlertHypertension = "hypertension"
)

// AlertMessage is one decoded line from an alert-source connection.
// Immutable once parsed.
type AlertMessage struct {
	PatientID string        `json:"patient_id"`
	Timestamp float64       `json:"timestamp"`
	Type      string        `json:"type"`
	Message   string        `json:"message"`
	Severity  AlertSeverity `json:"severity"`
}

func (a *AlertMessage) Validate() error {
	if a.PatientID == "" {
		return fmt.Errorf("patient_id must not be empty")
	}
	switch a.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return fmt.Errorf("unknown severity %q", a.Severity)
	}
	return nil
}
