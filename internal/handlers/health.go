package handlers

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports database and cache reachability. The cache is
// optional; when it is down the service still answers but reports degraded.
type HealthHandler struct {
	db    HealthChecker
	cache HealthChecker
}

func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Database: "up", Cache: "disabled"}
	status := http.StatusOK

	if err := h.db.HealthCheck(ctx); err != nil {
		resp.Status, resp.Database = "unhealthy", "down"
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		resp.Cache = "up"
		if err := h.cache.HealthCheck(ctx); err != nil {
			resp.Cache = "down"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		}
	}

	pkghttp.WriteJSON(w, status, resp)
}
