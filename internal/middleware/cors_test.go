package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsHandler(origins []string) http.Handler {
	config := DefaultCORSConfig()
	config.AllowedOrigins = origins
	return CORS(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORS_ConfiguredOriginAllowed(t *testing.T) {
	handler := corsHandler([]string{"https://danz.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/claims/ABC", nil)
	req.Header.Set("Origin", "https://danz.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://danz.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestCORS_UnknownOriginGetsNoHeaders(t *testing.T) {
	handler := corsHandler([]string{"https://danz.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/claims/ABC", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	var reached bool
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://danz.example.com"}
	handler := CORS(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/claims/ABC", nil)
	req.Header.Set("Origin", "https://danz.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, reached, "preflight must not reach the handler")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}
