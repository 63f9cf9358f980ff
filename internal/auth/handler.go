package auth

import (
	"errors"
	"net/http"
	"strings"

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

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string  `json:"token"`
	Session Session `json:"session"`
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	token, sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		handlers.WriteJSON(w, http.StatusOK, loginResponse{Token: token, Session: sess})
	case errors.Is(err, ErrTooManyRequests):
		handlers.WriteError(w, http.StatusTooManyRequests, err.Error(), nil)
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrUserDisabled):
		handlers.WriteError(w, http.StatusUnauthorized, err.Error(), nil)
	default:
		logging.FromContext(r.Context(), h.logger).Error("sign-in failed", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
	}
}

// Logout handles POST /api/auth/logout. It always succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := BearerToken(r); token != "" {
		h.svc.Logout(r.Context(), token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/staff/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := FromContext(r.Context())
	if !ok {
		handlers.WriteError(w, http.StatusUnauthorized, ErrUnauthenticated.Error(), nil)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, sess)
}
