package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"ocean-sentinel/internal/observability/metrics"
	"ocean-sentinel/internal/registry/application"
	registry "ocean-sentinel/internal/registry/domain"
)

// Handler ingests automated detections from sensor feeds. Each detection
// becomes a registered threat; detections flagged auto_alert also create an
// alert against the new threat.
type Handler struct {
	threats   *application.ThreatService
	alerts    *application.AlertService
	principal registry.Principal
	logger    *log.Logger
}

// NewHandler constructs an ingest handler. The principal is the machine
// identity detections are attributed to; it needs the reporter role, and the
// sender role when auto alerts are used.
func NewHandler(threats *application.ThreatService, alerts *application.AlertService, principal registry.Principal, logger *log.Logger) (*Handler, error) {
	if threats == nil {
		return nil, errors.New("detection ingest: nil threat service")
	}
	if alerts == nil {
		return nil, errors.New("detection ingest: nil alert service")
	}
	if principal == "" {
		return nil, errors.New("detection ingest: empty principal")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{threats: threats, alerts: alerts, principal: principal, logger: logger}, nil
}

type ingestRequest struct {
	Source     string      `json:"source"`
	Detections []detection `json:"detections"`
}

type detection struct {
	Type               string   `json:"type"`
	Severity           int      `json:"severity"`
	Confidence         int      `json:"confidence"`
	LatitudeE6         int64    `json:"latitude_e6"`
	LongitudeE6        int64    `json:"longitude_e6"`
	Description        string   `json:"description"`
	DataHash           string   `json:"data_hash"`
	AffectedPopulation int64    `json:"affected_population"`
	AutoAlert          bool     `json:"auto_alert"`
	Message            string   `json:"message"`
	Channels           []string `json:"channels"`
	Recipients         []string `json:"recipients"`
}

// ServeHTTP ingests a batch of detections.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("detection ingest: read body error: %v", err)
		metrics.IncIngestError("read_body")
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("detection ingest: decode error: %v", err)
		metrics.IncIngestError("decode")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Detections) == 0 {
		metrics.IncIngestError("empty_batch")
		http.Error(w, "no detections", http.StatusBadRequest)
		return
	}

	threatIDs := make([]uint64, 0, len(req.Detections))
	alertIDs := make([]uint64, 0)
	for i, det := range req.Detections {
		threatID, err := h.threats.Register(r.Context(), h.principal, registry.ThreatInput{
			Type:               registry.ThreatType(det.Type),
			Severity:           det.Severity,
			Confidence:         det.Confidence,
			LatitudeE6:         det.LatitudeE6,
			LongitudeE6:        det.LongitudeE6,
			Description:        describeDetection(req.Source, det.Description),
			DataHash:           det.DataHash,
			AffectedPopulation: det.AffectedPopulation,
		})
		if err != nil {
			h.logger.Printf("detection ingest: detection %d rejected: %v", i, err)
			metrics.IncIngestError("invalid_detection")
			metrics.ObserveIngest(metrics.ResultError, time.Since(start))
			respondDetectionError(w, err)
			return
		}
		threatIDs = append(threatIDs, threatID)

		if det.AutoAlert {
			channels := make([]registry.Channel, 0, len(det.Channels))
			for _, channel := range det.Channels {
				channels = append(channels, registry.Channel(channel))
			}
			alertID, err := h.alerts.Create(r.Context(), h.principal, registry.AlertInput{
				ThreatID:   threatID,
				Message:    det.Message,
				Severity:   det.Severity,
				Channels:   channels,
				Recipients: det.Recipients,
			})
			if err != nil {
				h.logger.Printf("detection ingest: auto alert for threat %d rejected: %v", threatID, err)
				metrics.IncIngestError("invalid_auto_alert")
				metrics.ObserveIngest(metrics.ResultError, time.Since(start))
				respondDetectionError(w, err)
				return
			}
			alertIDs = append(alertIDs, alertID)
		}
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"registered": len(threatIDs),
		"threat_ids": threatIDs,
		"alert_ids":  alertIDs,
	})
}

func describeDetection(source, description string) string {
	if source == "" {
		return description
	}
	return fmt.Sprintf("[%s] %s", source, description)
}

func respondDetectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnauthorized):
		http.Error(w, "forbidden", http.StatusForbidden)
	case registry.IsInvalidInput(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
