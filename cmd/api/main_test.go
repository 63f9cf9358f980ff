package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/dentalbook/internal/config"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, _, m := setupMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveBooking("accepted", 0.1)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "dental_booking_submissions_total") {
		t.Fatalf("expected booking counter to be exported")
	}
}

func TestBuildAppInMemory(t *testing.T) {
	cfg := &appconfig.Config{
		Env:                    "test",
		ClinicTZ:               "Asia/Manila",
		EmailProvider:          "stub",
		BootstrapStaffEmail:    "Owner@Clinic.example",
		BootstrapStaffPassword: "open sesame",
		BootstrapStaffName:     "Owner",
	}
	logger := logging.New("error")

	a, err := buildApp(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer a.Close()

	rr := httptest.NewRecorder()
	a.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d: %s", rr.Code, rr.Body.String())
	}

	body, _ := json.Marshal(map[string]string{"email": "owner@clinic.example", "password": "open sesame"})
	rr = httptest.NewRecorder()
	a.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected bootstrapped account to sign in, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestBuildAppWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{Env: "test", RedisAddr: mr.Addr(), ClinicTZ: "Asia/Manila"}

	a, err := buildApp(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer a.Close()
	if a.redis == nil {
		t.Fatalf("expected redis client")
	}

	rr := httptest.NewRecorder()
	a.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if !strings.Contains(rr.Body.String(), `"redis":"ok"`) {
		t.Fatalf("expected redis ok in readiness, got %s", rr.Body.String())
	}
}

func TestBuildAppRequiresSecretInProduction(t *testing.T) {
	cfg := &appconfig.Config{Env: "production", ClinicTZ: "UTC"}
	if _, err := buildApp(context.Background(), cfg, logging.New("error")); err == nil {
		t.Fatalf("expected error without AUTH_JWT_SECRET in production")
	}
}
