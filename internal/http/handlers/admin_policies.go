package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reparoja/reparoja-ai-platform/internal/funnel"
	"github.com/reparoja/reparoja-ai-platform/internal/policies"
	"github.com/reparoja/reparoja-ai-platform/pkg/logging"
)

// AdminPoliciesHandler hosts the service-policy CRUD used by operations to
// tune which equipment goes to which service without a deploy.
type AdminPoliciesHandler struct {
	store  *policies.Store
	logger *logging.Logger
}

// NewAdminPoliciesHandler creates the policy admin handler.
func NewAdminPoliciesHandler(store *policies.Store, logger *logging.Logger) *AdminPoliciesHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminPoliciesHandler{store: store, logger: logger}
}

// ListPolicies handles GET /admin/policies.
func (h *AdminPoliciesHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "policy store not configured", http.StatusServiceUnavailable)
		return
	}
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list policies", "error", err)
		http.Error(w, "failed to list policies", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []policies.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": records})
}

type upsertPolicyRequest struct {
	ID           string   `json:"id,omitempty"`
	ServiceType  string   `json:"service_type"`
	Keywords     []string `json:"equipment_keywords"`
	OfferMessage string   `json:"offer_message,omitempty"`
	Enabled      *bool    `json:"enabled,omitempty"`
}

var validServiceTypes = map[funnel.ServiceType]bool{
	funnel.ServiceOnsite:          true,
	funnel.ServicePickupDiagnosis: true,
	funnel.ServicePickupRepair:    true,
}

// UpsertPolicy handles PUT /admin/policies.
func (h *AdminPoliciesHandler) UpsertPolicy(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "policy store not configured", http.StatusServiceUnavailable)
		return
	}
	var req upsertPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	service := funnel.ServiceType(strings.TrimSpace(req.ServiceType))
	if !validServiceTypes[service] {
		http.Error(w, "invalid service_type", http.StatusBadRequest)
		return
	}
	keywords := make([]string, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, funnel.Normalize(kw))
		}
	}
	if len(keywords) == 0 {
		http.Error(w, "equipment_keywords are required", http.StatusBadRequest)
		return
	}

	rec := policies.Record{PolicyRow: funnel.PolicyRow{
		Service:      service,
		Keywords:     keywords,
		OfferMessage: req.OfferMessage,
		Enabled:      true,
	}}
	if req.Enabled != nil {
		rec.Enabled = *req.Enabled
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		rec.ID = id
	}

	id, err := h.store.Upsert(r.Context(), rec)
	if err != nil {
		h.logger.Error("failed to upsert policy", "error", err)
		http.Error(w, "failed to save policy", http.StatusInternalServerError)
		return
	}

	h.logger.Info("policy saved", "policy_id", id, "service_type", service)
	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetPolicyEnabled handles PATCH /admin/policies/{policyID}/enabled.
func (h *AdminPoliciesHandler) SetPolicyEnabled(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "policy store not configured", http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "policyID"))
	if err != nil {
		http.Error(w, "invalid policy id", http.StatusBadRequest)
		return
	}
	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := h.store.SetEnabled(r.Context(), id, req.Enabled); err != nil {
		h.logger.Error("failed to update policy", "error", err, "policy_id", id)
		http.Error(w, "failed to update policy", http.StatusInternalServerError)
		return
	}

	h.logger.Info("policy toggled", "policy_id", id, "enabled", req.Enabled)
	w.WriteHeader(http.StatusNoContent)
}
