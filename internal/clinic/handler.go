package clinic

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dentalbook/internal/http/handlers"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Handler provides HTTP endpoints for the clinic profile.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates a new clinic profile HTTP handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Routes returns a chi router with the profile routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetProfile)
	r.Put("/", h.UpdateProfile)
	return r
}

// GetProfile returns the clinic profile.
// GET /api/staff/clinic
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context())
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Error("failed to get clinic profile", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		logging.FromContext(r.Context(), h.logger).Error("failed to encode clinic profile", "error", err)
	}
}

// UpdateProfileRequest is a partial update; nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name               *string `json:"name,omitempty"`
	Address            *string `json:"address,omitempty"`
	Phone              *string `json:"phone,omitempty"`
	Email              *string `json:"email,omitempty"`
	Timezone           *string `json:"timezone,omitempty"`
	NotifyOnBooking    *bool   `json:"notify_on_booking,omitempty"`
	NotifyOnReschedule *bool   `json:"notify_on_reschedule,omitempty"`
}

// UpdateProfile applies a partial update to the clinic profile.
// PUT /api/staff/clinic
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	p, err := h.store.Get(r.Context())
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Error("failed to get clinic profile", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Timezone != nil {
		p.Timezone = *req.Timezone
	}
	if req.NotifyOnBooking != nil {
		p.NotifyOnBooking = *req.NotifyOnBooking
	}
	if req.NotifyOnReschedule != nil {
		p.NotifyOnReschedule = *req.NotifyOnReschedule
	}

	if err := p.Validate(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "validation_failed", "details": err.Error()})
		return
	}

	if err := h.store.Set(r.Context(), p); err != nil {
		logging.FromContext(r.Context(), h.logger).Error("failed to save clinic profile", "error", err)
		http.Error(w, `{"error": "failed to save profile"}`, http.StatusInternalServerError)
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("clinic profile updated", "name", p.Name)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		logging.FromContext(r.Context(), h.logger).Error("failed to encode clinic profile", "error", err)
	}
}
