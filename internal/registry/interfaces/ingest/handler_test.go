package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"ocean-sentinel/internal/registry/application"
	registry "ocean-sentinel/internal/registry/domain"
	"ocean-sentinel/internal/registry/infrastructure/memory"
)

type nopBus struct{}

func (nopBus) Publish(ctx context.Context, event any) error { return nil }

func newTestHandler(t *testing.T) (*Handler, *application.ThreatService, *application.AlertService) {
	t.Helper()
	acl, err := registry.NewAccessList("owner")
	if err != nil {
		t.Fatalf("new access list: %v", err)
	}
	for _, role := range []registry.Role{registry.RoleReporter, registry.RoleSender} {
		if err := acl.Grant("owner", role, "sentinel-ingest"); err != nil {
			t.Fatalf("grant %s: %v", role, err)
		}
	}

	threats, err := application.NewThreatService(memory.NewThreatStore(), acl, nopBus{})
	if err != nil {
		t.Fatalf("threat service: %v", err)
	}
	alerts, err := application.NewAlertService(memory.NewAlertStore(), acl, nopBus{})
	if err != nil {
		t.Fatalf("alert service: %v", err)
	}
	handler, err := NewHandler(threats, alerts, "sentinel-ingest", log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, threats, alerts
}

func postBatch(t *testing.T, handler *Handler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/detections", bytes.NewReader(raw))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestIngestBatch(t *testing.T) {
	handler, threats, _ := newTestHandler(t)

	rec := postBatch(t, handler, map[string]any{
		"source": "buoy-grid-7",
		"detections": []map[string]any{
			{"type": "storm", "severity": 4, "confidence": 88, "description": "pressure drop", "data_hash": "0x01"},
			{"type": "algal_bloom", "severity": 2, "confidence": 70, "description": "chlorophyll spike", "data_hash": "0x02"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Registered int      `json:"registered"`
		ThreatIDs  []uint64 `json:"threat_ids"`
		AlertIDs   []uint64 `json:"alert_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Registered != 2 || len(resp.ThreatIDs) != 2 || len(resp.AlertIDs) != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}

	threat, err := threats.Get(context.Background(), resp.ThreatIDs[0])
	if err != nil {
		t.Fatalf("get threat: %v", err)
	}
	if threat.Reporter != "sentinel-ingest" {
		t.Fatalf("expected machine principal as reporter, got %s", threat.Reporter)
	}
	if threat.Description != "[buoy-grid-7] pressure drop" {
		t.Fatalf("expected source-prefixed description, got %q", threat.Description)
	}
}

func TestIngestAutoAlert(t *testing.T) {
	handler, _, alerts := newTestHandler(t)

	rec := postBatch(t, handler, map[string]any{
		"source": "buoy-grid-7",
		"detections": []map[string]any{
			{
				"type": "storm", "severity": 5, "confidence": 95,
				"description": "category 4 approaching", "data_hash": "0x03",
				"auto_alert": true, "message": "evacuate the harbor",
				"channels": []string{"sms", "push"}, "recipients": []string{"harbor-ops"},
			},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AlertIDs []uint64 `json:"alert_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.AlertIDs) != 1 {
		t.Fatalf("expected 1 auto alert, got %v", resp.AlertIDs)
	}

	alert, err := alerts.Get(context.Background(), resp.AlertIDs[0])
	if err != nil {
		t.Fatalf("get alert: %v", err)
	}
	if !alert.IsEmergency || alert.Message != "evacuate the harbor" {
		t.Fatalf("unexpected alert %+v", alert)
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	cases := []struct {
		name    string
		payload any
		want    int
	}{
		{"empty batch", map[string]any{"source": "x", "detections": []map[string]any{}}, http.StatusBadRequest},
		{"invalid severity", map[string]any{"detections": []map[string]any{
			{"type": "storm", "severity": 9, "description": "x", "data_hash": "h"},
		}}, http.StatusBadRequest},
		{"unknown type", map[string]any{"detections": []map[string]any{
			{"type": "kraken", "severity": 3, "description": "x", "data_hash": "h"},
		}}, http.StatusBadRequest},
		{"auto alert without message", map[string]any{"detections": []map[string]any{
			{"type": "storm", "severity": 3, "description": "x", "data_hash": "h",
				"auto_alert": true, "channels": []string{"sms"}, "recipients": []string{"r"}},
		}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postBatch(t, handler, tc.payload)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestIngestInvalidJSON(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/detections", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestIngestMethodNotAllowed(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingest/detections", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
}
