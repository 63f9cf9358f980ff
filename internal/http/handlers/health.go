package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function (for example a redis client's Ping) to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports liveness and dependency readiness.
type HealthHandler struct {
	postgres Pinger
	redis    Pinger
	env      string
	version  string
}

// NewHealthHandler builds a handler. Nil pingers are reported as "disabled".
func NewHealthHandler(postgres, redis Pinger, env, version string) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis, env: env, version: version}
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Liveness always reports ok while the process serves requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: h.version, Env: h.env})
}

// Readiness pings Postgres and Redis. Postgres down is an error, Redis down
// only degrades (locks and revocations fall back to process memory).
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	if state := ping(ctx, h.postgres); state != "" {
		deps["postgres"] = state
		if state == "down" {
			status = "error"
		}
	}
	if state := ping(ctx, h.redis); state != "" {
		deps["redis"] = state
		if state == "down" && status == "ok" {
			status = "degraded"
		}
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}
	WriteJSON(w, httpStatus, HealthResponse{Status: status, Version: h.version, Env: h.env, Dependencies: deps})
}

func ping(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	pctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Ping(pctx); err != nil {
		return "down"
	}
	return "ok"
}
