package models

import (
	"fmt"
)

// VitalSigns is one physiological measurement set for a patient at one instant.
// Ranges mirror what the bedside sensors are physically able to report; a value
// outside them means the datagram is corrupt and must be dropped, not clamped.
type VitalSigns struct {
	HeartRate        int     `json:"heart_rate"`
	SpO2             float64 `json:"spo2"`
	BloodPressureSys int     `json:"blood_pressure_sys"`
	BloodPressureDia int     `json:"blood_pressure_dia"`
	Temperature      float64 `json:"temperature"`
	RespirationRate  int     `json:"respiration_rate"`
}

// Validate checks every field against its physiological range.
func (v *VitalSigns) Validate() error {
	if v.HeartRate < 0 || v.HeartRate > 260 {
		return fmt.Errorf("heart_rate %d out of range [0, 260]", v.HeartRate)
	}
	if v.SpO2 < 0.0 || v.SpO2 > 100.0 {
		return fmt.Errorf("spo2 %.1f out of range [0.0, 100.0]", v.SpO2)
	}
	if v.BloodPressureSys < 0 || v.BloodPressureSys > 300 {
		return fmt.Errorf("blood_pressure_sys %d out of range [0, 300]", v.BloodPressureSys)
	}
	if v.BloodPressureDia < 0 || v.BloodPressureDia > 200 {
		return fmt.Errorf("blood_pressure_dia %d out of range [0, 200]", v.BloodPressureDia)
	}
	if v.Temperature < 25.0 || v.Temperature > 45.0 {
		return fmt.Errorf("temperature %.1f out of range [25.0, 45.0]", v.Temperature)
	}
	if v.RespirationRate < 0 || v.RespirationRate > 80 {
		return fmt.Errorf("respiration_rate %d out of range [0, 80]", v.RespirationRate)
	}
	return nil
}

// TelemetryMessage is one decoded vitals datagram. Immutable once parsed.
type TelemetryMessage struct {
	PatientID string     `json:"patient_id"`
	Timestamp float64    `json:"timestamp"`
	Vitals    VitalSigns `json:"vitals"`
}

func (t *TelemetryMessage) Validate() error {
	if t.PatientID == "" {
		return fmt.Errorf("patient_id must not be empty")
	}
	if err := t.Vitals.Validate(); err != nil {
		return fmt.Errorf("vitals for patient %s: %w", t.PatientID, err)
	}
	return nil
}
