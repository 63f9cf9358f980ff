package reports

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dentalbook/internal/http/handlers"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts under /api/staff/reports.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Summary)
	r.Get("/export", h.Export)
	return r
}

func filterFrom(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{Start: q.Get("start"), End: q.Get("end")}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context(), filterFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Export(r.Context(), filterFrom(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	if out.ArchiveKey != "" {
		w.Header().Set("X-Report-Archive-Key", out.ArchiveKey)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		h.logger.Warn("reports: write pdf response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidRange) {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_date_range", err.Error())
		return
	}
	h.logger.Error("report request failed", "error", err)
	handlers.WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
}
