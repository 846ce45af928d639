package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ocean-sentinel/internal/audit"
	"ocean-sentinel/internal/auth"
	"ocean-sentinel/internal/registry/application"
	registry "ocean-sentinel/internal/registry/domain"
)

// AlertHandler provides alert registry HTTP endpoints.
type AlertHandler struct {
	service *application.AlertService
	audits  audit.Logger
}

// NewAlertHandler constructs a handler. audits may be nil.
func NewAlertHandler(service *application.AlertService, audits audit.Logger) (*AlertHandler, error) {
	if service == nil {
		return nil, errors.New("alerts handler: nil service")
	}
	return &AlertHandler{service: service, audits: audits}, nil
}

type createAlertRequest struct {
	ThreatID   uint64   `json:"threat_id"`
	Message    string   `json:"message"`
	Severity   int      `json:"severity"`
	Channels   []string `json:"channels"`
	Recipients []string `json:"recipients"`
}

type updateAlertStatusRequest struct {
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

type thresholdRequest struct {
	Threshold int `json:"threshold"`
}

// ServeHTTP handles /api/v1/alerts and subroutes.
func (h *AlertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/alerts":
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case r.URL.Path == "/api/v1/alerts/stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		respondJSON(w, http.StatusOK, h.service.Stats(r.Context()))
		return
	case r.URL.Path == "/api/v1/alerts/emergency-threshold":
		h.handleThreshold(w, r)
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/alerts/"):
		h.handleItem(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AlertHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	channels := make([]registry.Channel, 0, len(req.Channels))
	for _, channel := range req.Channels {
		channels = append(channels, registry.Channel(channel))
	}
	caller := registry.Principal(auth.SubjectFromContext(r.Context()))
	id, err := h.service.Create(r.Context(), caller, registry.AlertInput{
		ThreatID:   req.ThreatID,
		Message:    req.Message,
		Severity:   req.Severity,
		Channels:   channels,
		Recipients: req.Recipients,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	alert, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	h.logAudit(r, "alert.create", id, req)
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":           id,
		"is_emergency": alert.IsEmergency,
	})
}

func (h *AlertHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Per-threat adjacency is unpaginated.
	if raw := query.Get("threat_id"); raw != "" {
		threatID, err := parseID(raw)
		if err != nil {
			respondError(w, err)
			return
		}
		ids := h.service.ForThreat(r.Context(), threatID)
		respondJSON(w, http.StatusOK, map[string][]uint64{"ids": ids})
		return
	}

	offset, limit, err := parsePage(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var ids []uint64
	switch {
	case query.Get("status") != "":
		ids, err = h.service.ListByStatus(r.Context(), registry.AlertStatus(query.Get("status")), offset, limit)
	case query.Get("view") == "emergency":
		ids, err = h.service.ListEmergency(r.Context(), offset, limit)
	default:
		ids, err = h.service.ListRecent(r.Context(), offset, limit)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, idList{IDs: ids, Offset: offset, Limit: limit})
}

func (h *AlertHandler) handleThreshold(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]int{"threshold": h.service.EmergencyThreshold(r.Context())})
	case http.MethodPut, http.MethodPost:
		var req thresholdRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		caller := registry.Principal(auth.SubjectFromContext(r.Context()))
		if err := h.service.SetEmergencyThreshold(r.Context(), caller, req.Threshold); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "alert.threshold_set", 0, req)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *AlertHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	parts := strings.Split(path, "/")

	id, err := parseID(parts[0])
	if err != nil {
		respondError(w, err)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		alert, err := h.service.Get(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, alert)
		return
	}

	if len(parts) != 2 || parts[1] != "status" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var req updateAlertStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	caller := registry.Principal(auth.SubjectFromContext(r.Context()))
	if err := h.service.UpdateStatus(r.Context(), caller, id, registry.AlertStatus(req.Status), req.FailureReason); err != nil {
		respondError(w, err)
		return
	}
	h.logAudit(r, "alert.status_update", id, req)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AlertHandler) logAudit(r *http.Request, action string, id uint64, payload any) {
	if h.audits == nil {
		return
	}
	metadata, _ := json.Marshal(payload)
	resourceID := ""
	if id > 0 {
		resourceID = fmt.Sprintf("%d", id)
	}
	_ = h.audits.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Roles:        contextRoles(r.Context()),
		Action:       action,
		ResourceType: "alert",
		ResourceID:   resourceID,
		Metadata:     metadata,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
