// Package excursions contiene los controllers de excursiones.
package excursions

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BloodyDerby/biosentiers-backend/internal/http/controllers"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	"github.com/BloodyDerby/biosentiers-backend/internal/http/middlewares"
	svc "github.com/BloodyDerby/biosentiers-backend/internal/http/services/excursions"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
)

// ExcursionsController maneja las rutas de excursiones y participantes.
type ExcursionsController struct {
	excursions svc.Service
}

// NewExcursionsController crea el controller de excursiones.
func NewExcursionsController(excursions svc.Service) *ExcursionsController {
	return &ExcursionsController{excursions: excursions}
}

// Create maneja POST /api/excursions.
func (c *ExcursionsController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ExcursionsController.Create"))

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.excursions.Create(ctx, middlewares.GetUser(ctx), body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("excursion payload rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusCreated, resp)
}

// List maneja GET /api/excursions.
func (c *ExcursionsController) List(w http.ResponseWriter, r *http.Request) {
	resp, err := c.excursions.List(r.Context(), middlewares.GetUser(r.Context()))
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Get maneja GET /api/excursions/{id}.
func (c *ExcursionsController) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := c.excursions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Update maneja PATCH /api/excursions/{id}.
func (c *ExcursionsController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ExcursionsController.Update"))

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.excursions.Update(ctx, middlewares.GetUser(ctx), chi.URLParam(r, "id"), body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		log.Debug("excursion patch rejected", logger.ErrorCount(len(verrs)))
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusOK, resp)
}

// AddParticipant maneja POST /api/excursions/{id}/participants.
func (c *ExcursionsController) AddParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := controllers.DecodeJSONBody(w, r)
	if !ok {
		return
	}

	resp, verrs, err := c.excursions.AddParticipant(ctx, middlewares.GetUser(ctx), chi.URLParam(r, "id"), body)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if len(verrs) > 0 {
		httperrors.WriteValidation(w, verrs)
		return
	}

	controllers.WriteJSON(w, http.StatusCreated, resp)
}

// ListParticipants maneja GET /api/excursions/{id}/participants.
func (c *ExcursionsController) ListParticipants(w http.ResponseWriter, r *http.Request) {
	resp, err := c.excursions.ListParticipants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// RemoveParticipant maneja DELETE /api/excursions/{id}/participants/{participantId}.
func (c *ExcursionsController) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	err := c.excursions.RemoveParticipant(r.Context(), middlewares.GetUser(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "participantId"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
