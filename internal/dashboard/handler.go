package dashboard

import (
	"net/http"

	"github.com/wolfman30/dentalbook/internal/http/handlers"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Get serves GET /api/staff/dashboard.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Error("dashboard: summary failed", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to load dashboard")
		return
	}
	handlers.WriteJSON(w, http.StatusOK, summary)
}
