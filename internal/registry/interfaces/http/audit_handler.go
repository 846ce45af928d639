package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"ocean-sentinel/internal/audit"
	registry "ocean-sentinel/internal/registry/domain"
)

// AuditReader loads recent audit entries.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// AuditHandler serves the audit trail, newest entries first.
type AuditHandler struct {
	reader AuditReader
}

// NewAuditHandler constructs a handler.
func NewAuditHandler(reader AuditReader) (*AuditHandler, error) {
	if reader == nil {
		return nil, errors.New("audit handler: nil reader")
	}
	return &AuditHandler{reader: reader}, nil
}

// ServeHTTP handles GET /api/v1/audit.
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > audit.MaxRecentEntries {
			respondError(w, registry.ErrInvalidLimit)
			return
		}
		limit = parsed
	}

	entries, err := h.reader.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}
