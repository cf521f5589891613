package models

// Message type tags on the viewer channel.
const (
	TypeSnapshot  = "snapshot"
	TypeTelemetry = "telemetry"
	TypeAlert     = "alert"
	TypeCNStats   = "cn_stats"
)

// Envelope is the tagged wrapper every viewer-channel message travels in.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// CNInfo carries the static listener ports shown on the dashboard header.
type CNInfo struct {
	UDPPort int `json:"udp_port"`
	TCPPort int `json:"tcp_port"`
	WSPort  int `json:"ws_port"`
}

// CNStats is the periodic operational-status payload.
type CNStats struct {
	UDPPort        int `json:"udp_port"`
	TCPPort        int `json:"tcp_port"`
	WSPort         int `json:"ws_port"`
	TCPConnections int `json:"tcp_connections"`
}

// SnapshotData is the one-shot baseline a viewer receives right after joining:
// latest vitals per patient, the retained alert ring (most recent first) and
// the listener ports.
type SnapshotData struct {
	Patients map[string]*TelemetryMessage `json:"patients"`
	Alerts   []*AlertMessage              `json:"alerts"`
	CNInfo   CNInfo                       `json:"cn_info"`
}

func NewTelemetryEnvelope(t *TelemetryMessage) Envelope {
	return Envelope{Type: TypeTelemetry, Data: t}
}

func NewAlertEnvelope(a *AlertMessage) Envelope {
	return Envelope{Type: TypeAlert, Data: a}
}

func NewSnapshotEnvelope(data *SnapshotData) Envelope {
	return Envelope{Type: TypeSnapshot, Data: data}
}

func NewCNStatsEnvelope(stats CNStats) Envelope {
	return Envelope{Type: TypeCNStats, Data: stats}
}
