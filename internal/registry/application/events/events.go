package events

import (
	"time"

	registry "ocean-sentinel/internal/registry/domain"
)

// ThreatRegistered is emitted when a threat is recorded.
type ThreatRegistered struct {
	ThreatID   uint64              `json:"threat_id"`
	Type       registry.ThreatType `json:"type"`
	Severity   int                 `json:"severity"`
	Confidence int                 `json:"confidence"`
	Reporter   registry.Principal  `json:"reporter"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// ThreatStatusUpdated is emitted on every threat status transition.
type ThreatStatusUpdated struct {
	ThreatID   uint64                `json:"threat_id"`
	OldStatus  registry.ThreatStatus `json:"old_status"`
	NewStatus  registry.ThreatStatus `json:"new_status"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// ThreatVerified is emitted when a threat receives its human verification.
type ThreatVerified struct {
	ThreatID   uint64             `json:"threat_id"`
	Verifier   registry.Principal `json:"verifier"`
	Legitimate bool               `json:"legitimate"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// AlertCreated is emitted when an alert is recorded.
type AlertCreated struct {
	AlertID     uint64             `json:"alert_id"`
	ThreatID    uint64             `json:"threat_id"`
	Severity    int                `json:"severity"`
	IsEmergency bool               `json:"is_emergency"`
	Sender      registry.Principal `json:"sender"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// AlertStatusUpdated is emitted on every alert status transition.
type AlertStatusUpdated struct {
	AlertID    uint64               `json:"alert_id"`
	ThreatID   uint64               `json:"threat_id"`
	OldStatus  registry.AlertStatus `json:"old_status"`
	NewStatus  registry.AlertStatus `json:"new_status"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// AlertDelivered is emitted when an alert reaches delivered, carrying the
// delivery latency measured from creation.
type AlertDelivered struct {
	AlertID     uint64        `json:"alert_id"`
	ThreatID    uint64        `json:"threat_id"`
	DeliveredAt time.Time     `json:"delivered_at"`
	Latency     time.Duration `json:"latency_ns"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

// EmergencyAlert is emitted alongside AlertCreated for alerts classified as
// emergencies at creation time.
type EmergencyAlert struct {
	AlertID    uint64    `json:"alert_id"`
	ThreatID   uint64    `json:"threat_id"`
	Severity   int       `json:"severity"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}
