package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		alert   AlertMessage
		wantErr bool
	}{
		{
			name:  "valid high severity",
			alert: AlertMessage{PatientID: "p1", Timestamp: 1000, Type: AlertFever, Message: "Detected fever", Severity: SeverityHigh},
		},
		{
			name:  "valid low severity",
			alert: AlertMessage{PatientID: "p1", Timestamp: 1000, Type: AlertHypoxia, Message: "Detected hypoxia", Severity: SeverityLow},
		},
		{
			name:  "unknown category is still relayed",
			alert: AlertMessage{PatientID: "p1", Timestamp: 1000, Type: "bradycardia", Message: "Detected bradycardia", Severity: SeverityMedium},
		},
		{
			name:    "missing patient id",
			alert:   AlertMessage{Timestamp: 1000, Type: AlertFever, Message: "Detected fever", Severity: SeverityHigh},
			wantErr: true,
		},
		{
			name:    "unknown severity",
			alert:   AlertMessage{PatientID: "p1", Timestamp: 1000, Type: AlertFever, Message: "Detected fever", Severity: "critical"},
			wantErr: true,
		},
		{
			name:    "empty severity",
			alert:   AlertMessage{PatientID: "p1", Timestamp: 1000, Type: AlertFever, Message: "Detected fever"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.alert.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
