package patients

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dentalbook/internal/dental"
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

// Routes mounts under /api/staff/patients.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/appointments", h.History)
	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f := Filter{
		Status: dental.PatientStatus(r.URL.Query().Get("status")),
		Query:  r.URL.Query().Get("q"),
	}
	if f.Status != "" && !f.Status.Valid() {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_status", "status must be active or inactive")
		return
	}
	out, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"patients": out, "count": len(out)})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := handlers.DecodeJSON(w, r, &in); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := handlers.DecodeJSON(w, r, &in); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	p, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		handlers.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, ErrNotFound):
		handlers.WriteError(w, http.StatusNotFound, "patient_not_found", nil)
	default:
		h.logger.Error("patient request failed", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
	}
}
