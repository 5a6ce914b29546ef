// Package installations contiene los controllers de instalaciones.
package installations

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BloodyDerby/biosentiers-backend/internal/http/controllers"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	"github.com/BloodyDerby/biosentiers-backend/internal/http/middlewares"
	svc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/installations"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

// InstallationsController maneja las rutas de instalaciones.
type InstallationsController struct {
	installations svc.Service
}

// NewInstallationsController crea el controller de instalaciones.
func NewInstallationsController(installations svc.Service) *InstallationsController {
	return &InstallationsController{installations: installations}
}

// Create maneja POST /api/installations (solo administradores).
func (c *InstallationsController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("InstallationsController.Create"))

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.installations.Create(ctx, body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("installation payload rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusCreated, resp)
}

// Get maneja GET /api/installations/{id}.
func (c *InstallationsController) Get(w http.ResponseWriter, r *http.Request) {
	apiID := chi.URLParam(r, "id")
	if !c.mayAccess(r, apiID) {
		httperrors.Write(w, httperrors.ErrForbidden)
		return
	}
	resp, err := c.installations.Get(r.Context(), apiID)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Update maneja PATCH /api/installations/{id}.
func (c *InstallationsController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("InstallationsController.Update"))

	apiID := chi.URLParam(r, "id")
	if !c.mayAccess(r, apiID) {
		httperrors.Write(w, httperrors.ErrForbidden)
		return
	}

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.installations.Update(ctx, apiID, body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("installation patch rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusOK, resp)
}

// AddEvent maneja POST /api/installations/{id}/events. Solo la propia
// instalación puede reportar sus eventos.
func (c *InstallationsController) AddEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("InstallationsController.AddEvent"))

	apiID := chi.URLParam(r, "id")
	claims := middlewares.GetClaims(ctx)
	if claims.AuthType != jwtx.AuthTypeInstallation || claims.Sub != apiID {
		httperrors.Write(w, httperrors.ErrForbidden)
		return
	}

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.installations.AddEvent(ctx, apiID, body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("event payload rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusCreated, resp)
}

// mayAccess permite administradores y la propia instalación.
func (c *InstallationsController) mayAccess(r *http.Request, apiID string) bool {
	claims := middlewares.GetClaims(r.Context())
	if claims == nil {
		return false
	}
	if claims.AuthType == jwtx.AuthTypeInstallation {
		return claims.Sub == apiID
	}
	user := middlewares.GetUser(r.Context())
	return user != nil && user.HasRole(core.RoleAdmin)
}
