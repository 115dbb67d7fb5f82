package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/claimsdesk/internal/handlers"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	up := checkerFunc(func(context.Context) error { return nil })
	down := checkerFunc(func(context.Context) error { return errors.New("unreachable") })

	tests := []struct {
		name   string
		db     handlers.HealthChecker
		cache  handlers.HealthChecker
		status int
		want   handlers.HealthResponse
	}{
		{"all up", up, up, http.StatusOK, handlers.HealthResponse{Status: "healthy", Database: "up", Cache: "up"}},
		{"no cache", up, nil, http.StatusOK, handlers.HealthResponse{Status: "healthy", Database: "up", Cache: "disabled"}},
		{"cache down", up, down, http.StatusOK, handlers.HealthResponse{Status: "degraded", Database: "up", Cache: "down"}},
		{"database down", down, up, http.StatusServiceUnavailable, handlers.HealthResponse{Status: "unhealthy", Database: "down", Cache: "up"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.NewHealthHandler(tt.db, tt.cache).Health(w, httptest.NewRequest("GET", "/health", nil))

			var got handlers.HealthResponse
			handlers.AssertJSONResponse(t, w, tt.status, &got)
			assert.Equal(t, tt.want, got)
		})
	}
}
