// Package auth contiene los controllers de autenticación.
package auth

import (
	"net/http"

	"github.com/BloodyDerby/biosentiers-backend/internal/http/controllers"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	svc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/auth"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
)

// AuthController maneja POST /api/auth y los flujos de invitación y reseteo.
type AuthController struct {
	auth        svc.Service
	invitations svc.InvitationService
	resets      svc.PasswordResetService
}

// NewAuthController crea el controller de autenticación.
func NewAuthController(auth svc.Service, invitations svc.InvitationService, resets svc.PasswordResetService) *AuthController {
	return &AuthController{auth: auth, invitations: invitations, resets: resets}
}

// Authenticate maneja POST /api/auth.
func (c *AuthController) Authenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.Authenticate"))

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.auth.Authenticate(ctx, body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("authentication payload rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusCreated, resp)
}

// Invite maneja POST /api/auth/invitations (solo administradores).
func (c *AuthController) Invite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.Invite"))

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.invitations.Invite(ctx, body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("invitation payload rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusCreated, resp)
}

// RequestPasswordReset maneja POST /api/auth/resets.
func (c *AuthController) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.RequestPasswordReset"))

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.resets.RequestReset(ctx, body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("password reset payload rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusCreated, resp)
}
