package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"gorm.io/gorm"

	"licenser/pkg/contracts"
)

// HealthHandler handles health-related HTTP requests.
type HealthHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *gorm.DB, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /healthz. Reports degraded when the
// database does not answer.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "database ping failed",
			slog.String("error", err.Error()))
		status = "degraded"
	}

	render.JSON(w, r, map[string]interface{}{
		"status":    status,
		"version":   contracts.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// LivenessCheck handles GET /healthz/live.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"status": "alive"})
}

// Version handles GET /version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
