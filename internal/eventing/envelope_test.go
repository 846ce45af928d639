package eventing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ocean-sentinel/internal/registry/application/events"
)

func TestBuildEnvelopeFromAlertEvent(t *testing.T) {
	occurred := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	event := events.EmergencyAlert{
		AlertID:    7,
		ThreatID:   3,
		Severity:   5,
		Message:    "evacuate the marina",
		OccurredAt: occurred,
	}

	envelope, err := BuildEnvelope(event, Meta{Source: "registry"})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if envelope.EventType != "events.EmergencyAlert" {
		t.Fatalf("expected events.EmergencyAlert, got %s", envelope.EventType)
	}
	// Alert events are keyed by the alert, not the threat.
	if envelope.SubjectID != "alert/7" {
		t.Fatalf("expected subject alert/7, got %s", envelope.SubjectID)
	}
	if !envelope.OccurredAt.Equal(occurred) {
		t.Fatalf("expected occurred-at from the event, got %v", envelope.OccurredAt)
	}
	if envelope.EventID == "" || envelope.CorrelationID != envelope.EventID {
		t.Fatalf("expected correlation to default to the event id, got %+v", envelope)
	}
	if envelope.SchemaVersion != 1 {
		t.Fatalf("expected schema version 1, got %d", envelope.SchemaVersion)
	}

	var decoded events.EmergencyAlert
	if err := json.Unmarshal(envelope.Payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Message != event.Message || decoded.AlertID != event.AlertID {
		t.Fatalf("payload round trip mismatch: %+v", decoded)
	}
}

func TestBuildEnvelopeFromThreatEvent(t *testing.T) {
	event := events.ThreatRegistered{ThreatID: 12, Severity: 4}

	envelope, err := BuildEnvelope(event, Meta{Source: "registry"})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if envelope.SubjectID != "threat/12" {
		t.Fatalf("expected subject threat/12, got %s", envelope.SubjectID)
	}
	if envelope.OccurredAt.IsZero() {
		t.Fatal("expected occurred-at fallback to now")
	}
}

func TestBuildEnvelopeMetaOverrides(t *testing.T) {
	occurred := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	envelope, err := BuildEnvelope(events.ThreatVerified{ThreatID: 1}, Meta{
		EventID:       "evt-1",
		OccurredAt:    occurred,
		CorrelationID: "corr-1",
		Source:        "ingest",
		SubjectID:     "threat/99",
		SchemaVersion: 2,
	})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if envelope.EventID != "evt-1" || envelope.CorrelationID != "corr-1" {
		t.Fatalf("meta ids not honored: %+v", envelope)
	}
	if envelope.Source != "ingest" || envelope.SubjectID != "threat/99" {
		t.Fatalf("meta source/subject not honored: %+v", envelope)
	}
	if !envelope.OccurredAt.Equal(occurred) || envelope.SchemaVersion != 2 {
		t.Fatalf("meta time/version not honored: %+v", envelope)
	}
}

func TestBuildEnvelopeNilEvent(t *testing.T) {
	if _, err := BuildEnvelope(nil, Meta{}); err == nil {
		t.Fatal("expected error for nil event")
	}
}

func TestMetaFromContext(t *testing.T) {
	ctx := WithCorrelationID(WithSource(context.Background(), "ingest"), "corr-7")
	meta := MetaFromContext(ctx, "registry")
	if meta.Source != "ingest" {
		t.Fatalf("expected context source to win, got %s", meta.Source)
	}
	if meta.CorrelationID != "corr-7" {
		t.Fatalf("expected context correlation id, got %s", meta.CorrelationID)
	}

	meta = MetaFromContext(context.Background(), "registry")
	if meta.Source != "registry" {
		t.Fatalf("expected default source, got %s", meta.Source)
	}
}
