package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureLogger(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		status    int
		wantPath  string
		wantLevel string
	}{
		{"plain query kept", "/admin/claims?status=Pending", http.StatusOK, "/admin/claims?status=Pending", "INFO"},
		{"token redacted", "/users/reset-password?token=abc", http.StatusBadRequest, "/users/reset-password?[REDACTED]", "INFO"},
		{"server error", "/policies", http.StatusInternalServerError, "/policies", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			req := httptest.NewRequest("GET", tt.target, nil)
			SecureLogger(logger, nil)(next).ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "http_request", entry["msg"])
			assert.Equal(t, tt.wantPath, entry["path"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.EqualValues(t, tt.status, entry["status"])
		})
	}
}
