package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ocean-sentinel/internal/auth"
	registry "ocean-sentinel/internal/registry/domain"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError maps domain errors onto HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnauthorized):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, registry.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, registry.ErrStatusUnchanged), errors.Is(err, registry.ErrAlreadyVerified):
		http.Error(w, err.Error(), http.StatusConflict)
	case registry.IsInvalidInput(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// parsePage reads offset/limit query params, defaulting to the first
// full page.
func parsePage(r *http.Request) (offset, limit int, err error) {
	offset = 0
	limit = registry.MaxPageLimit
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, registry.ErrInvalidOffset
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, registry.ErrInvalidLimit
		}
	}
	return offset, limit, nil
}

// contextRoles renders the caller's granted roles for the audit trail.
func contextRoles(ctx context.Context) string {
	roles := auth.RolesFromContext(ctx)
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return strings.Join(names, ",")
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, registry.ErrNotFound
	}
	return id, nil
}

type idList struct {
	IDs    []uint64 `json:"ids"`
	Offset int      `json:"offset"`
	Limit  int      `json:"limit"`
}
