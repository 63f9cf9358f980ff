package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/dentalbook/internal/appointments"
	"github.com/wolfman30/dentalbook/internal/auth"
	"github.com/wolfman30/dentalbook/internal/booking"
	"github.com/wolfman30/dentalbook/internal/calendar"
	"github.com/wolfman30/dentalbook/internal/clinic"
	"github.com/wolfman30/dentalbook/internal/dashboard"
	"github.com/wolfman30/dentalbook/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/dentalbook/internal/http/middleware"
	"github.com/wolfman30/dentalbook/internal/patients"
	"github.com/wolfman30/dentalbook/internal/reports"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Health             *handlers.HealthHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	Booking       *booking.Handler
	Auth          *auth.Handler
	Authenticator httpmiddleware.Authenticator

	Dashboard    *dashboard.Handler
	Clinic       *clinic.Handler
	Patients     *patients.Handler
	Appointments *appointments.Handler
	Calendar     *calendar.Handler
	Reports      *reports.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 2
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Get("/health", cfg.Health.Liveness)
			public.Get("/health/ready", cfg.Health.Readiness)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Booking != nil {
			public.With(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)).
				Mount("/api/booking", cfg.Booking.Routes())
		}
		if cfg.Auth != nil {
			public.Route("/api/auth", func(r chi.Router) {
				r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
				r.Post("/login", cfg.Auth.Login)
				r.Post("/logout", cfg.Auth.Logout)
			})
		}
	})

	// Staff routes (bearer session required)
	if cfg.Authenticator != nil {
		r.Route("/api/staff", func(staff chi.Router) {
			staff.Use(httpmiddleware.RequireSession(cfg.Authenticator))

			if cfg.Auth != nil {
				staff.Get("/me", cfg.Auth.Me)
			}
			if cfg.Dashboard != nil {
				staff.Get("/dashboard", cfg.Dashboard.Get)
			}
			if cfg.Clinic != nil {
				staff.Mount("/clinic", cfg.Clinic.Routes())
			}
			if cfg.Patients != nil {
				staff.Mount("/patients", cfg.Patients.Routes())
			}
			if cfg.Appointments != nil {
				staff.Mount("/appointments", cfg.Appointments.Routes())
				staff.Mount("/requests", cfg.Appointments.RequestRoutes())
				staff.With(httpmiddleware.RequireRole(auth.RoleAdmin)).
					Post("/maintenance/fix-dates", cfg.Appointments.FixDates)
			}
			if cfg.Calendar != nil {
				staff.Get("/calendar", cfg.Calendar.Month)
				staff.Mount("/blocked-dates", cfg.Calendar.BlockedRoutes())
				staff.Mount("/emergency-reschedules", cfg.Calendar.RescheduleRoutes())
			}
			if cfg.Reports != nil {
				staff.Mount("/reports", cfg.Reports.Routes())
			}
		})
	}

	return r
}
