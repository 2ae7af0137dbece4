package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CORS([]string{" https://example.org/ ", ""}, next)

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"preflight allowed", http.MethodOptions, "https://example.org", http.StatusNoContent, "https://example.org"},
		{"preflight other origin", http.MethodOptions, "https://evil.test", http.StatusNoContent, ""},
		{"request allowed", http.MethodGet, "https://example.org", http.StatusOK, "https://example.org"},
		{"request other origin", http.MethodGet, "https://evil.test", http.StatusOK, ""},
		{"no origin", http.MethodGet, "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://test/announcements/current", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "Origin", rr.Header().Get("Vary"))
			if tt.wantOrigin != "" {
				assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
			}
			if tt.method == http.MethodOptions && tt.wantOrigin != "" {
				assert.Equal(t, corsAllowMethods, rr.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}

func TestCORS_HeadersWithoutExplicitWriteHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	req := httptest.NewRequest(http.MethodGet, "http://test/announcements/current", nil)
	req.Header.Set("Origin", "https://example.org")
	rr := httptest.NewRecorder()
	CORS([]string{"https://example.org"}, next).ServeHTTP(rr, req)

	assert.Equal(t, "https://example.org", rr.Header().Get("Access-Control-Allow-Origin"))
}
