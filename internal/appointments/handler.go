package appointments

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dentalbook/internal/availability"
	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/http/handlers"
	"github.com/wolfman30/dentalbook/internal/store"
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

// Routes mounts under /api/staff/appointments.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/status", h.SetStatus)
	return r
}

// RequestRoutes mounts under /api/staff/requests.
func (h *Handler) RequestRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListRequests)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/decline", h.Decline)
	return r
}

// List supports ?status=a,b&from=&to=&patient_id=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.AppointmentFilter{
		PatientID: q.Get("patient_id"),
		From:      q.Get("from"),
		To:        q.Get("to"),
	}
	for _, bound := range []string{f.From, f.To} {
		if bound == "" {
			continue
		}
		if _, err := dental.ParseDate(bound); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid_date", "from and to must be YYYY-MM-DD")
			return
		}
	}
	if raw := q.Get("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			f.Statuses = append(f.Statuses, dental.AppointmentStatus(strings.TrimSpace(st)))
		}
	}

	appts, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"appointments": appts, "count": len(appts)})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := handlers.DecodeJSON(w, r, &in); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	created, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, map[string]any{"appointments": created})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := handlers.DecodeJSON(w, r, &in); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	a, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status dental.AppointmentStatus `json:"status"`
	Note   string                   `json:"note,omitempty"`
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	a, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.Requests(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"requests": appts, "count": len(appts)})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Accept(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, a)
}

type declineRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	var req declineRequest
	if r.ContentLength != 0 {
		if err := handlers.DecodeJSON(w, r, &req); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
	}
	a, err := h.svc.Decline(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, a)
}

// FixDates runs the date normalization job.
// POST /api/staff/maintenance/fix-dates
func (h *Handler) FixDates(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.FixDates(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		handlers.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, ErrNotFound):
		handlers.WriteError(w, http.StatusNotFound, "appointment_not_found", nil)
	case errors.Is(err, ErrPatientNotFound):
		handlers.WriteError(w, http.StatusNotFound, "patient_not_found", nil)
	case errors.Is(err, availability.ErrDateBlocked):
		handlers.WriteError(w, http.StatusConflict, "date_blocked", err.Error())
	case errors.Is(err, availability.ErrSlotTaken):
		handlers.WriteError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		handlers.WriteError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		h.logger.Error("appointment request failed", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
	}
}
