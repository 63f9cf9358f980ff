package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		wantAllowed string
	}{
		{"listed origin", []string{"https://clinic.example"}, "https://clinic.example", "https://clinic.example"},
		{"unknown origin", []string{"https://clinic.example"}, "https://evil.example", ""},
		{"wildcard echoes origin", []string{"*"}, "https://random.example", "https://random.example"},
		{"blank entries ignored", []string{" ", ""}, "https://clinic.example", ""},
		{"trailing slash in config", []string{"https://clinic.example/"}, "https://clinic.example", "https://clinic.example"},
		{"subdomain wildcard", []string{"https://*.smiledental.ph"}, "https://staff.smiledental.ph", "https://staff.smiledental.ph"},
		{"wildcard needs a subdomain", []string{"https://*.smiledental.ph"}, "https://smiledental.ph", ""},
		{"wildcard checks scheme", []string{"https://*.smiledental.ph"}, "http://staff.smiledental.ph", ""},
		{"wildcard checks suffix boundary", []string{"https://*.smiledental.ph"}, "https://evilsmiledental.ph", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, "/api/booking/options", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			CORS(tt.allowed)(okHandler(&called)).ServeHTTP(rec, req)

			assert.True(t, called)
			assert.Equal(t, tt.wantAllowed, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantAllowed != "" {
				assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
				assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
			}
		})
	}
}

func TestCORSHandlesPreflight(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodOptions, "/api/booking/submit", nil)
	req.Header.Set("Origin", "https://clinic.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	CORS([]string{"https://clinic.example"})(okHandler(&called)).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSRefusesPreflightFromUnknownOrigin(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodOptions, "/api/booking/submit", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	CORS([]string{"https://clinic.example"})(okHandler(&called)).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
