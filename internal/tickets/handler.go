package tickets

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/haloline/slawatch/internal/domain"
	"github.com/haloline/slawatch/internal/pkg/httputil"
	"github.com/haloline/slawatch/internal/policy"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrTicketNotFound, Status: http.StatusNotFound, Message: "ticket not found"},
	{Error: ErrAlreadyResponded, Status: http.StatusConflict, Message: "first response already recorded"},
	{Error: ErrTicketNotOpen, Status: http.StatusConflict, Message: "ticket is not open"},
	{Error: ErrTicketNotResolved, Status: http.StatusConflict, Message: "ticket is not resolved"},
	{Error: ErrTicketClosed, Status: http.StatusConflict, Message: "ticket is closed"},
	{Error: policy.ErrInvalidPriority, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for the tickets module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new tickets handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers ticket lifecycle routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Post("/", h.CreateTicket)
		r.Get("/{id}", h.GetTicket)
		r.Post("/{id}/first-response", h.RecordFirstResponse)
		r.Post("/{id}/resolve", h.ResolveTicket)
		r.Post("/{id}/reopen", h.ReopenTicket)
		r.Post("/{id}/close", h.CloseTicket)
	})
}

// CreateTicketRequest represents request body for creating a ticket.
type CreateTicketRequest struct {
	Subject    string  `json:"subject" validate:"required"`
	Priority   string  `json:"priority" validate:"required,oneof=low medium high urgent"`
	AssigneeID *string `json:"assignee_id"`
}

// CreateTicket handles POST /tickets.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	t, err := h.service.Create(r.Context(), CreateTicketInput{
		Subject:    req.Subject,
		Priority:   domain.Priority(req.Priority),
		AssigneeID: req.AssigneeID,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, t)
}

// GetTicket handles GET /tickets/{id}.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, t)
}

// ListTickets handles GET /tickets.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{Limit: 50}

	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.TicketStatus(v)
		if !status.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status")
			return
		}
		filters.Status = &status
	}

	if v := r.URL.Query().Get("priority"); v != "" {
		priority := domain.Priority(v)
		if !priority.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid priority")
			return
		}
		filters.Priority = &priority
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filters.Limit = limit
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			httputil.Error(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filters.Offset = offset
	}

	list, err := h.service.List(r.Context(), filters)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, list)
}

// RecordFirstResponse handles POST /tickets/{id}/first-response.
func (h *Handler) RecordFirstResponse(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.RecordFirstResponse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, t)
}

// ResolveTicket handles POST /tickets/{id}/resolve.
func (h *Handler) ResolveTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, t)
}

// ReopenTicket handles POST /tickets/{id}/reopen.
func (h *Handler) ReopenTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Reopen(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, t)
}

// CloseTicket handles POST /tickets/{id}/close.
func (h *Handler) CloseTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, t)
}
