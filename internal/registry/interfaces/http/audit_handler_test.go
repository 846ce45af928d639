package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ocean-sentinel/internal/audit"
)

type stubAuditReader struct {
	limit   int
	entries []audit.Entry
}

func (s *stubAuditReader) Recent(_ context.Context, limit int) ([]audit.Entry, error) {
	s.limit = limit
	return s.entries, nil
}

func TestAuditEndpoint(t *testing.T) {
	reader := &stubAuditReader{entries: []audit.Entry{
		{
			ID:           "audit-02",
			Actor:        "verifier-1",
			Roles:        "verifier",
			Action:       "threat.verify",
			ResourceType: "threat",
			ResourceID:   "3",
			CreatedAt:    time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC),
		},
		{
			ID:           "audit-01",
			Actor:        "reporter-1",
			Roles:        "reporter",
			Action:       "threat.register",
			ResourceType: "threat",
			ResourceID:   "3",
			CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
	}}
	handler, err := NewAuditHandler(reader)
	if err != nil {
		t.Fatalf("new audit handler: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit?limit=25", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if reader.limit != 25 {
		t.Fatalf("expected limit 25 to reach the reader, got %d", reader.limit)
	}
	var entries []audit.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != "threat.verify" || entries[0].Roles != "verifier" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestAuditEndpointRejectsBadInput(t *testing.T) {
	handler, err := NewAuditHandler(&stubAuditReader{})
	if err != nil {
		t.Fatalf("new audit handler: %v", err)
	}

	cases := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"garbage limit", http.MethodGet, "/api/v1/audit?limit=25x", http.StatusBadRequest},
		{"zero limit", http.MethodGet, "/api/v1/audit?limit=0", http.StatusBadRequest},
		{"limit above cap", http.MethodGet, "/api/v1/audit?limit=501", http.StatusBadRequest},
		{"post not allowed", http.MethodPost, "/api/v1/audit", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestAuditEndpointEmptyTrail(t *testing.T) {
	handler, err := NewAuditHandler(&stubAuditReader{})
	if err != nil {
		t.Fatalf("new audit handler: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}
}
