// Package users contiene los controllers de cuentas de usuario.
package users

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BloodyDerby/biosentiers-backend/internal/http/controllers"
	usersdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/users"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	"github.com/BloodyDerby/biosentiers-backend/internal/http/middlewares"
	svc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/users"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

// UsersController maneja las rutas de usuarios.
type UsersController struct {
	users svc.Service
	repo  core.UserRepository
}

// NewUsersController crea el controller de usuarios.
func NewUsersController(users svc.Service, repo core.UserRepository) *UsersController {
	return &UsersController{users: users, repo: repo}
}

// actor arma el principal a partir del contexto del request. Para tokens
// passwordReset el middleware no carga la cuenta, así que no hay User.
func actorFrom(r *http.Request) *svc.Actor {
	return &svc.Actor{
		Claims: middlewares.GetClaims(r.Context()),
		User:   middlewares.GetUser(r.Context()),
	}
}

// Create maneja POST /api/users. Requiere un token de invitación o una
// sesión de administrador.
func (c *UsersController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.Create"))

	claims := middlewares.GetClaims(ctx)
	if claims.AuthType == jwtx.AuthTypeUser {
		user := middlewares.GetUser(ctx)
		if user == nil || !user.HasRole(core.RoleAdmin) {
			httperrors.Write(w, httperrors.ErrForbidden)
			return
		}
	}

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.users.Create(ctx, claims, body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("user payload rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusCreated, resp)
}

// List maneja GET /api/users (solo administradores).
func (c *UsersController) List(w http.ResponseWriter, r *http.Request) {
	resp, err := c.users.List(r.Context(), actorFrom(r))
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Get maneja GET /api/users/{id}.
func (c *UsersController) Get(w http.ResponseWriter, r *http.Request) {
	apiID := chi.URLParam(r, "id")
	resp, err := c.users.Get(r.Context(), actorFrom(r), apiID)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Update maneja PATCH /api/users/{id}.
func (c *UsersController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.Update"))

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	apiID := chi.URLParam(r, "id")
	resp, verrs, err := c.users.Update(ctx, actorFrom(r), apiID, body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("user patch rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Me maneja GET /api/me: el principal actual, aceptando tokens user y
// passwordReset.
func (c *UsersController) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middlewares.GetClaims(ctx)

	actor := actorFrom(r)
	if actor.User == nil {
		// Token passwordReset: la cuenta no está en el contexto.
		user, err := c.repo.GetByAPIID(ctx, claims.Sub)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				httperrors.Write(w, httperrors.ErrUnauthorized)
				return
			}
			httperrors.Write(w, httperrors.ErrInternal.WithCause(err))
			return
		}
		actor.User = user
	}

	resp, err := c.users.Get(ctx, actor, actor.User.APIID)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// UpdateMe maneja PATCH /api/me. Es la ruta que usan los tokens
// passwordReset para cambiar el password.
func (c *UsersController) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.UpdateMe"))

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	claims := middlewares.GetClaims(ctx)
	resp, verrs, err := c.users.Update(ctx, actorFrom(r), claims.Sub, body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("me patch rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusOK, resp)
}

// EmailAvailable maneja GET /api/users/availability?email=...
func (c *UsersController) EmailAvailable(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("email")
	available, err := c.users.EmailAvailable(r.Context(), address)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, usersdto.EmailAvailableResponse{
		Email:     address,
		Available: available,
	})
}
