package booking

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/http/handlers"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Handler serves the public booking endpoints.
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

// Routes mounts under /api/booking.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/options", h.Options)
	r.Get("/availability", h.Availability)
	r.Post("/steps/{step}", h.ValidateStep)
	r.Post("/submit", h.Submit)
	return r
}

type optionsResponse struct {
	Steps        []Step             `json:"steps"`
	TimeSlots    []string           `json:"time_slots"`
	Procedures   []dental.Procedure `json:"procedures"`
	EmailDomains []string           `json:"email_domains"`
	PhonePrefix  string             `json:"phone_prefix"`
	PhoneDigits  int                `json:"phone_digits"`
	Today        string             `json:"today"`
}

// Options lists the static choices the form offers.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, optionsResponse{
		Steps:        Steps,
		TimeSlots:    dental.TimeSlots,
		Procedures:   dental.PriceList,
		EmailDomains: dental.EmailDomains,
		PhonePrefix:  dental.PhonePrefix,
		PhoneDigits:  dental.PhoneDigits,
		Today:        h.svc.Today(),
	})
}

type availabilityResponse struct {
	Date     string   `json:"date"`
	Blocked  bool     `json:"blocked"`
	Taken    []string `json:"taken"`
	Free     []string `json:"free"`
	Degraded bool     `json:"degraded,omitempty"`
}

// Availability returns the free and taken slots of one day.
// GET /api/booking/availability?date=YYYY-MM-DD
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := dental.ParseDate(date); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}
	snap := h.svc.Availability(r.Context(), date)
	handlers.WriteJSON(w, http.StatusOK, availabilityResponse{
		Date:     date,
		Blocked:  snap.IsBlocked(date),
		Taken:    snap.TakenTimes(date),
		Free:     snap.FreeTimes(date),
		Degraded: snap.Degraded(),
	})
}

// ValidateStep checks one step of the form and returns the next step.
// POST /api/booking/steps/{step}
func (h *Handler) ValidateStep(w http.ResponseWriter, r *http.Request) {
	step, ok := ParseStep(chi.URLParam(r, "step"))
	if !ok {
		handlers.WriteError(w, http.StatusNotFound, "unknown_step", nil)
		return
	}
	var form Form
	if err := handlers.DecodeJSON(w, r, &form); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	next, err := h.svc.Validate(r.Context(), step, form)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"step": step,
		"next": next,
		"back": Back(next),
	})
}

// Submit commits the booking.
// POST /api/booking/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var form Form
	if err := handlers.DecodeJSON(w, r, &form); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	res, err := h.svc.Submit(r.Context(), form)
	if err != nil {
		h.writeError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr) && verr.Conflict():
		handlers.WriteError(w, http.StatusConflict, "slot_conflict", verr)
	case errors.As(err, &verr):
		handlers.WriteError(w, http.StatusBadRequest, "validation_failed", verr)
	case errors.Is(err, ErrSlotBusy):
		handlers.WriteError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, ErrAlreadySubmitted):
		handlers.WriteError(w, http.StatusBadRequest, "already_submitted", nil)
	default:
		h.logger.Error("booking request failed", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
	}
}
