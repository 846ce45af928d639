package http

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"
	"time"

	registry "ocean-sentinel/internal/registry/domain"
)

func sampleReportData() (registry.ThreatStats, []registry.Threat) {
	stats := registry.ThreatStats{Total: 2, Active: 1, Resolved: 1, Verified: 1}
	threats := []registry.Threat{
		{
			ID: 1, Type: registry.ThreatStorm, Severity: 5, Confidence: 90,
			LatitudeE6: 37774900, LongitudeE6: -122419400,
			Description: "category 4 storm", Reporter: "reporter-1",
			CreatedAt: time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
			Status:    registry.ThreatActive, Verified: true,
		},
		{
			ID: 2, Type: registry.ThreatPollution, Severity: 2, Confidence: 60,
			Description: "oil sheen near pier", Reporter: "buoy-17",
			CreatedAt: time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC),
			Status:    registry.ThreatResolved,
		},
	}
	return stats, threats
}

func TestBuildThreatReportCSV(t *testing.T) {
	stats, threats := sampleReportData()
	data, err := BuildThreatReportCSV(stats, threats)
	if err != nil {
		t.Fatalf("build csv: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "id" || records[0][1] != "type" {
		t.Fatalf("unexpected header %v", records[0])
	}
	row := records[1]
	if row[0] != "1" || row[1] != "storm" || row[2] != "5" {
		t.Fatalf("unexpected first row %v", row)
	}
	if row[5] != "37.774900" || row[6] != "-122.419400" {
		t.Fatalf("expected decimal coordinates, got %v", row)
	}
	if row[9] != "true" {
		t.Fatalf("expected verified flag, got %v", row)
	}
}

func TestBuildThreatReportPDF(t *testing.T) {
	stats, threats := sampleReportData()
	data, err := BuildThreatReportPDF(stats, threats)
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("expected PDF magic header")
	}
}

func TestBuildThreatReportXLSX(t *testing.T) {
	stats, threats := sampleReportData()
	data, err := BuildThreatReportXLSX(stats, threats)
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	// XLSX is a zip container.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("expected zip magic header")
	}
}

func TestExportEndpoints(t *testing.T) {
	env := newTestEnv(t)
	registerThreat(t, env, 4)
	exports, err := NewExportHandler(env.threats.service)
	if err != nil {
		t.Fatalf("export handler: %v", err)
	}

	cases := []struct {
		path        string
		contentType string
	}{
		{"/api/v1/exports/threats.csv", "text/csv"},
		{"/api/v1/exports/threats.pdf", "application/pdf"},
		{"/api/v1/exports/threats.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := doRequest(t, exports, http.MethodGet, tc.path, "owner", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got := rec.Header().Get("Content-Type"); got != tc.contentType {
				t.Fatalf("expected content type %s, got %s", tc.contentType, got)
			}
			if got := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(got, "attachment; filename=threats.") {
				t.Fatalf("expected attachment disposition, got %s", got)
			}
			if rec.Body.Len() == 0 {
				t.Fatal("expected non-empty body")
			}
		})
	}

	rec := doRequest(t, exports, http.MethodGet, "/api/v1/exports/threats.docx", "owner", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown format, got %d", rec.Code)
	}
}
