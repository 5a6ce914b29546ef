// Package router arma el árbol de rutas de la API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/auth"
	excursionsctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/excursions"
	healthctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/health"
	installationsctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/installations"
	usersctrl "github.com/BloodyDerby/biosentiers-backend/internal/http/controllers/users"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	mw "github.com/BloodyDerby/biosentiers-backend/internal/http/middlewares"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/metrics"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	Store core.Repository
	Codec *jwtx.Codec

	Auth          *authctrl.AuthController
	Users         *usersctrl.UsersController
	Installations *installationsctrl.InstallationsController
	Excursions    *excursionsctrl.ExcursionsController
	Health        *healthctrl.HealthController

	// MetricsHandler sirve /metrics; nil lo deshabilita.
	MetricsHandler http.Handler
}

// New construye el router completo de la API.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestID())
	r.Use(mw.WithLogging())
	r.Use(metrics.WithHTTP)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.Write(w, httperrors.ErrRecordNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.Write(w, httperrors.ErrMethodNotAllowed)
	})

	users := deps.Store.Users()

	requireUser := mw.RequireAuth(deps.Codec, users, string(jwtx.AuthTypeUser))
	requireUserOrReset := mw.RequireAuth(deps.Codec, users,
		string(jwtx.AuthTypeUser), string(jwtx.AuthTypePasswordReset))
	requireUserOrInvitation := mw.RequireAuth(deps.Codec, users,
		string(jwtx.AuthTypeUser), string(jwtx.AuthTypeInvitation))
	requireUserOrInstallation := mw.RequireAuth(deps.Codec, users,
		string(jwtx.AuthTypeUser), string(jwtx.AuthTypeInstallation))
	requireInstallation := mw.RequireAuth(deps.Codec, users, string(jwtx.AuthTypeInstallation))
	requireAdmin := mw.RequireRole(core.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		// Autenticación dual: usuarios e instalaciones.
		r.Post("/auth", deps.Auth.Authenticate)
		r.With(requireUser, requireAdmin).Post("/auth/invitations", deps.Auth.Invite)
		r.Post("/auth/resets", deps.Auth.RequestPasswordReset)

		// Usuarios.
		r.With(requireUserOrInvitation).Post("/users", deps.Users.Create)
		r.With(requireUser, requireAdmin).Get("/users", deps.Users.List)
		r.Get("/users/availability", deps.Users.EmailAvailable)
		r.With(requireUser).Get("/users/{id}", deps.Users.Get)
		r.With(requireUserOrReset).Patch("/users/{id}", deps.Users.Update)

		// Principal actual.
		r.With(requireUserOrReset).Get("/me", deps.Users.Me)
		r.With(requireUserOrReset).Patch("/me", deps.Users.UpdateMe)

		// Instalaciones.
		r.With(requireUser, requireAdmin).Post("/installations", deps.Installations.Create)
		r.With(requireUserOrInstallation).Get("/installations/{id}", deps.Installations.Get)
		r.With(requireUserOrInstallation).Patch("/installations/{id}", deps.Installations.Update)
		r.With(requireInstallation).Post("/installations/{id}/events", deps.Installations.AddEvent)

		// Excursiones.
		r.With(requireUser).Route("/excursions", func(r chi.Router) {
			r.Post("/", deps.Excursions.Create)
			r.Get("/", deps.Excursions.List)
			r.Get("/{id}", deps.Excursions.Get)
			r.Patch("/{id}", deps.Excursions.Update)
			r.Post("/{id}/participants", deps.Excursions.AddParticipant)
			r.Get("/{id}/participants", deps.Excursions.ListParticipants)
			r.Delete("/{id}/participants/{participantId}", deps.Excursions.RemoveParticipant)
		})
	})

	r.Get("/readyz", deps.Health.Readyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	return r
}
