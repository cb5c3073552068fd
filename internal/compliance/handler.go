package compliance

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/haloline/slawatch/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{}

// Handler handles HTTP requests for the compliance module.
type Handler struct {
	service *Service
}

// NewHandler creates a new compliance handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers compliance reporting routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sla/stats", h.GetStats)
	r.Get("/sla/at-risk", h.GetAtRisk)
	r.Get("/sla/breaches/recent", h.GetRecentBreaches)
}

// GetStats handles GET /sla/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, stats)
}

// GetAtRisk handles GET /sla/at-risk.
func (h *Handler) GetAtRisk(w http.ResponseWriter, r *http.Request) {
	atRisk, err := h.service.AtRisk(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, atRisk)
}

// GetRecentBreaches handles GET /sla/breaches/recent.
func (h *Handler) GetRecentBreaches(w http.ResponseWriter, r *http.Request) {
	breaches, err := h.service.RecentBreaches(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, breaches)
}
