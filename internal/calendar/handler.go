package calendar

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dentalbook/internal/auth"
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

// Month serves GET /api/staff/calendar?year=&month=. Missing values default
// to the current clinic month.
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	now := h.svc.now().In(h.svc.loc)
	year, month := now.Year(), now.Month()

	q := r.URL.Query()
	if raw := q.Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1900 || v > 9999 {
			handlers.WriteError(w, http.StatusBadRequest, "invalid_year", nil)
			return
		}
		year = v
	}
	if raw := q.Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			handlers.WriteError(w, http.StatusBadRequest, "invalid_month", nil)
			return
		}
		month = time.Month(v)
	}

	grid, err := h.svc.Month(r.Context(), year, month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, grid)
}

// BlockedRoutes mounts under /api/staff/blocked-dates.
func (h *Handler) BlockedRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListBlocked)
	r.Post("/", h.AddBlocked)
	return r
}

func (h *Handler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	dates, sets, err := h.svc.BlockedDates(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"dates": dates, "batches": sets})
}

type blockRequest struct {
	Dates  []string `json:"dates"`
	Reason string   `json:"reason,omitempty"`
}

func (h *Handler) AddBlocked(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	set, err := h.svc.AddBlockedDates(r.Context(), req.Dates, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, set)
}

// RescheduleRoutes mounts under /api/staff/emergency-reschedules.
func (h *Handler) RescheduleRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.History)
	r.Get("/candidates", h.Candidates)
	r.Post("/", h.Reschedule)
	return r
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.History(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"reschedules": records})
}

func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	appts, err := h.svc.Candidates(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"appointments": appts, "count": len(appts)})
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var in RescheduleInput
	if err := handlers.DecodeJSON(w, r, &in); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if sess, ok := auth.FromContext(r.Context()); ok {
		in.CreatedBy = sess.Email
	}
	result, err := h.svc.EmergencyReschedule(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrOutsideRange):
		handlers.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, ErrNotFound):
		handlers.WriteError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, ErrAlreadyBlocked):
		handlers.WriteError(w, http.StatusConflict, "dates_already_blocked", nil)
	default:
		h.logger.Error("calendar request failed", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
	}
}
