package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ocean-sentinel/internal/audit"
	"ocean-sentinel/internal/auth"
	"ocean-sentinel/internal/registry/application"
	registry "ocean-sentinel/internal/registry/domain"
)

// ThreatHandler provides threat registry HTTP endpoints.
type ThreatHandler struct {
	service *application.ThreatService
	audits  audit.Logger
}

// NewThreatHandler constructs a handler. audits may be nil.
func NewThreatHandler(service *application.ThreatService, audits audit.Logger) (*ThreatHandler, error) {
	if service == nil {
		return nil, errors.New("threats handler: nil service")
	}
	return &ThreatHandler{service: service, audits: audits}, nil
}

type registerThreatRequest struct {
	Type               string `json:"type"`
	Severity           int    `json:"severity"`
	Confidence         int    `json:"confidence"`
	LatitudeE6         int64  `json:"latitude_e6"`
	LongitudeE6        int64  `json:"longitude_e6"`
	Description        string `json:"description"`
	DataHash           string `json:"data_hash"`
	AffectedPopulation int64  `json:"affected_population"`
}

type updateThreatStatusRequest struct {
	Status string `json:"status"`
}

type verifyThreatRequest struct {
	Legitimate bool `json:"legitimate"`
}

// ServeHTTP handles /api/v1/threats and subroutes.
func (h *ThreatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/threats":
		switch r.Method {
		case http.MethodPost:
			h.handleRegister(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case r.URL.Path == "/api/v1/threats/stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		respondJSON(w, http.StatusOK, h.service.Stats(r.Context()))
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/threats/"):
		h.handleItem(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ThreatHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerThreatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	caller := registry.Principal(auth.SubjectFromContext(r.Context()))
	id, err := h.service.Register(r.Context(), caller, registry.ThreatInput{
		Type:               registry.ThreatType(req.Type),
		Severity:           req.Severity,
		Confidence:         req.Confidence,
		LatitudeE6:         req.LatitudeE6,
		LongitudeE6:        req.LongitudeE6,
		Description:        req.Description,
		DataHash:           req.DataHash,
		AffectedPopulation: req.AffectedPopulation,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	h.logAudit(r, "threat.register", id, req)
	respondJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (h *ThreatHandler) handleList(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := parsePage(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var ids []uint64
	query := r.URL.Query()
	switch {
	case query.Get("type") != "":
		ids, err = h.service.ListByType(r.Context(), registry.ThreatType(query.Get("type")), offset, limit)
	case query.Get("min_severity") != "":
		minSeverity, convErr := strconv.Atoi(query.Get("min_severity"))
		if convErr != nil {
			respondError(w, registry.ErrInvalidSeverity)
			return
		}
		ids, err = h.service.ListBySeverity(r.Context(), minSeverity, offset, limit)
	default:
		ids, err = h.service.ListActive(r.Context(), offset, limit)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, idList{IDs: ids, Offset: offset, Limit: limit})
}

func (h *ThreatHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/threats/")
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
		threat, err := h.service.Get(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, threat)
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	caller := registry.Principal(auth.SubjectFromContext(r.Context()))
	switch parts[1] {
	case "status":
		var req updateThreatStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.service.UpdateStatus(r.Context(), caller, id, registry.ThreatStatus(req.Status)); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "threat.status_update", id, req)
		w.WriteHeader(http.StatusNoContent)
	case "verify":
		var req verifyThreatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.service.Verify(r.Context(), caller, id, req.Legitimate); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "threat.verify", id, req)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ThreatHandler) logAudit(r *http.Request, action string, id uint64, payload any) {
	if h.audits == nil {
		return
	}
	metadata, _ := json.Marshal(payload)
	_ = h.audits.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Roles:        contextRoles(r.Context()),
		Action:       action,
		ResourceType: "threat",
		ResourceID:   fmt.Sprintf("%d", id),
		Metadata:     metadata,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
