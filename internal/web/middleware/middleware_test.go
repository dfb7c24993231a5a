package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/gmvsync/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.RemoteAddr))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"alpha", "beta"}}

	tests := []struct {
		name       string
		cfg        *config.SecurityConfig
		key        string
		wantStatus int
	}{
		{"auth disabled", &config.SecurityConfig{}, "", http.StatusOK},
		{"missing key", cfg, "", http.StatusUnauthorized},
		{"invalid key", cfg, "gamma", http.StatusForbidden},
		{"first key", cfg, "alpha", http.StatusOK},
		{"second key", cfg, "beta", http.StatusOK},
		{"required without keys", &config.SecurityConfig{RequireAPIKey: true}, "alpha", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.cfg)(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	mw := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "not-a-cidr"})

	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		want       string
	}{
		{"trusted proxy with X-Real-IP", "10.1.2.3:5000", "203.0.113.7", "", "203.0.113.7"},
		{"trusted single address", "192.168.1.5:5000", "203.0.113.7", "", "203.0.113.7"},
		{"trusted proxy with X-Forwarded-For", "10.1.2.3:5000", "", "198.51.100.2, 10.1.2.3", "198.51.100.2"},
		{"untrusted client", "203.0.113.9:4000", "1.2.3.4", "", "203.0.113.9:4000"},
		{"invalid header", "10.1.2.3:5000", "garbage", "", "10.1.2.3:5000"},
		{"no header", "10.1.2.3:5000", "", "", "10.1.2.3:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			rec := httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(rec, req)
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoggerCapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}
