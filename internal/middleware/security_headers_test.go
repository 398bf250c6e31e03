package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithHeaders(env string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	handler := SecurityHeaders(SecurityHeadersConfig{Env: env})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/claims/{code}", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders_APIProfile(t *testing.T) {
	rec := serveWithHeaders("production", nil)

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "no-referrer"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
		{"Cross-Origin-Resource-Policy", "same-site"},
	}

	for _, tt := range tests {
		if got := rec.Header().Get(tt.header); got != tt.expected {
			t.Errorf("Header %s: got %q, want %q", tt.header, got, tt.expected)
		}
	}

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'none'") {
		t.Errorf("CSP must deny by default for an API origin: %s", csp)
	}
	if !strings.Contains(csp, "img-src 'self'") {
		t.Errorf("CSP must still permit the same-origin QR image: %s", csp)
	}
}

func TestSecurityHeaders_HSTSOnlyBehindTLSInProduction(t *testing.T) {
	rec := serveWithHeaders("production", func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "https")
	})
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing on a forwarded-HTTPS production request")
	}

	rec = serveWithHeaders("production", nil)
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set on plain HTTP")
	}

	rec = serveWithHeaders("development", func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "https")
	})
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set in development")
	}
}
