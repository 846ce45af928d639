package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ocean-sentinel/internal/audit"
	"ocean-sentinel/internal/auth"
	registry "ocean-sentinel/internal/registry/domain"
)

// AccessHandler administers registry roles and ownership.
type AccessHandler struct {
	acl    *registry.AccessList
	audits audit.Logger
}

// NewAccessHandler constructs a handler. audits may be nil.
func NewAccessHandler(acl *registry.AccessList, audits audit.Logger) (*AccessHandler, error) {
	if acl == nil {
		return nil, errors.New("access handler: nil access list")
	}
	return &AccessHandler{acl: acl, audits: audits}, nil
}

type roleRequest struct {
	Role      string `json:"role"`
	Principal string `json:"principal"`
}

type transferRequest struct {
	NewOwner string `json:"new_owner"`
}

// ServeHTTP handles /api/v1/access subroutes.
func (h *AccessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	caller := registry.Principal(auth.SubjectFromContext(r.Context()))

	switch r.URL.Path {
	case "/api/v1/access/grant":
		var req roleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.acl.Grant(caller, registry.Role(req.Role), registry.Principal(req.Principal)); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "access.grant", req)
		w.WriteHeader(http.StatusNoContent)
	case "/api/v1/access/revoke":
		var req roleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.acl.Revoke(caller, registry.Role(req.Role), registry.Principal(req.Principal)); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "access.revoke", req)
		w.WriteHeader(http.StatusNoContent)
	case "/api/v1/access/transfer-ownership":
		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.acl.TransferOwnership(caller, registry.Principal(req.NewOwner)); err != nil {
			respondError(w, err)
			return
		}
		h.logAudit(r, "access.transfer_ownership", req)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AccessHandler) logAudit(r *http.Request, action string, payload any) {
	if h.audits == nil {
		return
	}
	metadata, _ := json.Marshal(payload)
	_ = h.audits.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Roles:        contextRoles(r.Context()),
		Action:       action,
		ResourceType: "access",
		Metadata:     metadata,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
