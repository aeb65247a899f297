package api

import (
	"context"
	"net/http"
	"time"

	"github.com/erazemk/zaloga/internal/db"
)

// HealthHandler reports whether the database and the live query are up.
type HealthHandler struct {
	DB  *db.DB
	Err func() error
}

// Check handles GET /healthz.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		jsonError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if h.Err != nil {
		if err := h.Err(); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "live query failed")
			return
		}
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
