package services

import (
	"bytes"
	"encoding/json"

	"vitalhub/models"
)

// decodeTelemetry parses one inbound telemetry payload (UDP datagram body or
// MQTT message) and validates it against the physiological ranges.
func decodeTelemetry(data []byte) (*models.TelemetryMessage, error) {
	var msg models.TelemetryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// decodeAlert parses one newline-delimited alert record.
func decodeAlert(line []byte) (*models.AlertMessage, error) {
	var msg models.AlertMessage
	if err := json.Unmarshal(bytes.TrimSpace(line), &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
