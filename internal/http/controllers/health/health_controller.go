// Package health contiene el controller para health checks.
package health

import (
	"net/http"

	"github.com/BloodyDerby/biosentiers-backend/internal/http/controllers"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

// HealthController maneja las rutas de health check.
type HealthController struct {
	store core.Repository
}

// NewHealthController crea un nuevo controller de health check.
func NewHealthController(store core.Repository) *HealthController {
	return &HealthController{store: store}
}

// Readyz maneja GET /readyz: responde 200 si el store contesta el ping.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	if err := c.store.Ping(ctx); err != nil {
		log.Warn("store ping failed", logger.Err(err))
		controllers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
		return
	}

	controllers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
