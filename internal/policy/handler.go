package policy

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/haloline/slawatch/internal/domain"
	"github.com/haloline/slawatch/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrPolicyNotFound, Status: http.StatusNotFound, Message: "sla policy not found"},
	{Error: ErrActivePolicyExists, Status: http.StatusConflict, Message: "an active policy already exists for this priority"},
	{Error: ErrInvalidPriority, Status: http.StatusBadRequest},
	{Error: ErrInvalidMinutes, Status: http.StatusBadRequest},
	{Error: ErrEscalationTarget, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for the policy module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new policy handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers policy administration routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sla/policies", func(r chi.Router) {
		r.Get("/", h.ListPolicies)
		r.Post("/", h.CreatePolicy)
		r.Get("/{id}", h.GetPolicy)
		r.Patch("/{id}", h.UpdatePolicy)
	})
}

// CreatePolicyRequest represents request body for creating a policy.
type CreatePolicyRequest struct {
	Priority               string  `json:"priority" validate:"required,oneof=low medium high urgent"`
	Name                   string  `json:"name" validate:"required"`
	ResponseTimeMinutes    int     `json:"response_time_minutes" validate:"required,gt=0"`
	ResolutionTimeMinutes  int     `json:"resolution_time_minutes" validate:"required,gt=0"`
	EscalationEnabled      bool    `json:"escalation_enabled"`
	EscalationAfterMinutes int     `json:"escalation_after_minutes"`
	EscalationTo           *string `json:"escalation_to"`
	IsActive               bool    `json:"is_active"`
}

// UpdatePolicyRequest represents request body for updating a policy.
type UpdatePolicyRequest struct {
	Name                   *string `json:"name"`
	ResponseTimeMinutes    *int    `json:"response_time_minutes"`
	ResolutionTimeMinutes  *int    `json:"resolution_time_minutes"`
	EscalationEnabled      *bool   `json:"escalation_enabled"`
	EscalationAfterMinutes *int    `json:"escalation_after_minutes"`
	EscalationTo           *string `json:"escalation_to"`
	IsActive               *bool   `json:"is_active"`
}

// ListPolicies handles GET /sla/policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.service.List(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, policies)
}

// GetPolicy handles GET /sla/policies/{id}.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, p)
}

// CreatePolicy handles POST /sla/policies.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	p, err := h.service.Create(r.Context(), CreatePolicyInput{
		Priority:               domain.Priority(req.Priority),
		Name:                   req.Name,
		ResponseTimeMinutes:    req.ResponseTimeMinutes,
		ResolutionTimeMinutes:  req.ResolutionTimeMinutes,
		EscalationEnabled:      req.EscalationEnabled,
		EscalationAfterMinutes: req.EscalationAfterMinutes,
		EscalationTo:           req.EscalationTo,
		IsActive:               req.IsActive,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, p)
}

// UpdatePolicy handles PATCH /sla/policies/{id}.
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req UpdatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), UpdatePolicyInput{
		Name:                   req.Name,
		ResponseTimeMinutes:    req.ResponseTimeMinutes,
		ResolutionTimeMinutes:  req.ResolutionTimeMinutes,
		EscalationEnabled:      req.EscalationEnabled,
		EscalationAfterMinutes: req.EscalationAfterMinutes,
		EscalationTo:           req.EscalationTo,
		IsActive:               req.IsActive,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, p)
}
