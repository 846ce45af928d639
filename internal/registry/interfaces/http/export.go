package http

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"ocean-sentinel/internal/observability/metrics"
	"ocean-sentinel/internal/registry/application"
	registry "ocean-sentinel/internal/registry/domain"
)

// ExportHandler serves threat report downloads.
type ExportHandler struct {
	service *application.ThreatService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(service *application.ThreatService) (*ExportHandler, error) {
	if service == nil {
		return nil, errors.New("export handler: nil service")
	}
	return &ExportHandler{service: service}, nil
}

// ServeHTTP handles /api/v1/exports/threats.{pdf,xlsx,csv}.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var (
		format      string
		contentType string
		build       func(registry.ThreatStats, []registry.Threat) ([]byte, error)
	)
	switch r.URL.Path {
	case "/api/v1/exports/threats.pdf":
		format, contentType, build = "pdf", "application/pdf", BuildThreatReportPDF
	case "/api/v1/exports/threats.xlsx":
		format, contentType, build = "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", BuildThreatReportXLSX
	case "/api/v1/exports/threats.csv":
		format, contentType, build = "csv", "text/csv", BuildThreatReportCSV
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	start := time.Now()
	data, err := build(h.service.Stats(r.Context()), h.service.All(r.Context()))
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=threats.%s", format))
	_, _ = w.Write(data)
}

// BuildThreatReportPDF renders a minimal PDF threat report.
func BuildThreatReportPDF(stats registry.ThreatStats, threats []registry.Threat) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Threat Registry Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Total: %d", stats.Total))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Active: %d", stats.Active))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Resolved: %d", stats.Resolved))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Verified: %d", stats.Verified))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(15, 6, "ID", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Registered", "1", 0, "C", false, 0, "")
	pdf.CellFormat(90, 6, "Description", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, threat := range threats {
		description := threat.Description
		if len(description) > 60 {
			description = description[:57] + "..."
		}
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", threat.ID), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, string(threat.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", threat.Severity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, string(threat.Status), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, threat.CreatedAt.UTC().Format(time.RFC3339), "1", 0, "L", false, 0, "")
		pdf.CellFormat(90, 6, description, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildThreatReportXLSX renders an XLSX threat report.
func BuildThreatReportXLSX(stats registry.ThreatStats, threats []registry.Threat) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	threatsSheet := "threats"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(threatsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Threat Registry Report")
	_ = f.SetCellValue(summarySheet, "A3", "Total")
	_ = f.SetCellValue(summarySheet, "B3", stats.Total)
	_ = f.SetCellValue(summarySheet, "A4", "Active")
	_ = f.SetCellValue(summarySheet, "B4", stats.Active)
	_ = f.SetCellValue(summarySheet, "A5", "Resolved")
	_ = f.SetCellValue(summarySheet, "B5", stats.Resolved)
	_ = f.SetCellValue(summarySheet, "A6", "Verified")
	_ = f.SetCellValue(summarySheet, "B6", stats.Verified)

	headers := []string{"ID", "Type", "Severity", "Confidence", "Status", "Latitude", "Longitude", "Reporter", "Registered", "Verified", "Description"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(threatsSheet, cell, header)
	}
	for i, threat := range threats {
		row := i + 2
		values := []any{
			threat.ID,
			string(threat.Type),
			threat.Severity,
			threat.Confidence,
			string(threat.Status),
			float64(threat.LatitudeE6) / 1e6,
			float64(threat.LongitudeE6) / 1e6,
			string(threat.Reporter),
			threat.CreatedAt.UTC().Format(time.RFC3339),
			threat.Verified,
			threat.Description,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(threatsSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildThreatReportCSV renders a CSV threat report.
func BuildThreatReportCSV(_ registry.ThreatStats, threats []registry.Threat) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"id", "type", "severity", "confidence", "status", "latitude", "longitude", "reporter", "registered_at", "verified", "description"}); err != nil {
		return nil, err
	}
	for _, threat := range threats {
		record := []string{
			fmt.Sprintf("%d", threat.ID),
			string(threat.Type),
			fmt.Sprintf("%d", threat.Severity),
			fmt.Sprintf("%d", threat.Confidence),
			string(threat.Status),
			fmt.Sprintf("%.6f", float64(threat.LatitudeE6)/1e6),
			fmt.Sprintf("%.6f", float64(threat.LongitudeE6)/1e6),
			string(threat.Reporter),
			threat.CreatedAt.UTC().Format(time.RFC3339),
			fmt.Sprintf("%t", threat.Verified),
			threat.Description,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
