// Package excursions administra las salidas planificadas y sus
// participantes. Es plomería fina sobre el store; la política es booleana
// (dueño o admin).
package excursions

import (
	"context"
	"errors"
	"math/rand"
	"time"

	excursionsdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/excursions"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
	"github.com/google/uuid"
)

// Service expone las operaciones sobre excursiones.
type Service interface {
	Create(ctx context.Context, creator *core.User, body any) (*excursionsdto.ExcursionResponse, validation.Errors, error)
	Get(ctx context.Context, apiID string) (*excursionsdto.ExcursionResponse, error)
	List(ctx context.Context, viewer *core.User) ([]*excursionsdto.ExcursionResponse, error)
	Update(ctx context.Context, actor *core.User, apiID string, body any) (*excursionsdto.ExcursionResponse, validation.Errors, error)

	AddParticipant(ctx context.Context, actor *core.User, excursionAPIID string, body any) (*excursionsdto.ParticipantResponse, validation.Errors, error)
	ListParticipants(ctx context.Context, excursionAPIID string) ([]*excursionsdto.ParticipantResponse, error)
	RemoveParticipant(ctx context.Context, actor *core.User, excursionAPIID, participantAPIID string) error
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Excursions core.ExcursionRepository
	Now        func() time.Time
}

type service struct {
	deps Deps
}

// NewService crea el servicio de excursiones.
func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{deps: deps}
}

func excursionSchema(patchMode bool) *validation.Rule {
	patchGate := func() *validation.Rule {
		return validation.If(validation.When(patchMode),
			validation.While(validation.IsSet()), nil)
	}
	return validation.Parallel(
		validation.Field("/name",
			patchGate(),
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
			validation.StringLength(1, 60),
		),
		validation.Field("/trailName",
			patchGate(),
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
		),
		validation.Field("/plannedAt",
			patchGate(),
			validation.Required(),
			validation.Type("string"),
			validation.ISO8601(),
		),
		validation.Field("/themes",
			validation.While(validation.IsSet()),
			validation.Type("array"),
		),
		validation.Field("/zones",
			validation.While(validation.IsSet()),
			validation.Type("array"),
		),
	)
}

func participantSchema() *validation.Rule {
	return validation.Parallel(
		validation.Field("/name",
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
			validation.StringLength(1, 30),
		),
	)
}

func (s *service) Create(ctx context.Context, creator *core.User, body any) (*excursionsdto.ExcursionResponse, validation.Errors, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("excursions"),
		logger.Op("Create"),
	)

	verrs, err := validation.Validate(ctx, body, excursionSchema(false))
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj, _ := body.(map[string]any)
	plannedAtRaw, _ := obj["plannedAt"].(string)
	plannedAt, err := validation.ParseISO8601(plannedAtRaw)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	e := &core.Excursion{
		APIID:     uuid.NewString(),
		CreatorID: creator.APIID,
		Name:      obj["name"].(string),
		TrailName: obj["trailName"].(string),
		PlannedAt: plannedAt,
		Themes:    stringSlice(obj["themes"]),
		Zones:     intSlice(obj["zones"]),
	}
	if err := s.deps.Excursions.Create(ctx, e); err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	log.Info("excursion created", logger.ExcursionID(e.APIID))
	return excursionsdto.NewExcursionResponse(e), nil, nil
}

func (s *service) Get(ctx context.Context, apiID string) (*excursionsdto.ExcursionResponse, error) {
	e, err := s.get(ctx, apiID)
	if err != nil {
		return nil, err
	}
	return excursionsdto.NewExcursionResponse(e), nil
}

func (s *service) List(ctx context.Context, viewer *core.User) ([]*excursionsdto.ExcursionResponse, error) {
	var (
		list []*core.Excursion
		err  error
	)
	if viewer.HasRole(core.RoleAdmin) {
		list, err = s.deps.Excursions.List(ctx)
	} else {
		list, err = s.deps.Excursions.ListByCreator(ctx, viewer.APIID)
	}
	if err != nil {
		return nil, httperrors.ErrInternal.WithCause(err)
	}
	return excursionsdto.NewExcursionResponses(list), nil
}

func (s *service) Update(ctx context.Context, actor *core.User, apiID string, body any) (*excursionsdto.ExcursionResponse, validation.Errors, error) {
	e, err := s.get(ctx, apiID)
	if err != nil {
		return nil, nil, err
	}
	if !canEdit(actor, e) {
		return nil, nil, httperrors.ErrForbidden
	}

	verrs, err := validation.Validate(ctx, body, excursionSchema(true))
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj, _ := body.(map[string]any)
	if v, ok := obj["name"].(string); ok {
		e.Name = v
	}
	if v, ok := obj["trailName"].(string); ok {
		e.TrailName = v
	}
	if v, ok := obj["plannedAt"].(string); ok {
		if at, err := validation.ParseISO8601(v); err == nil {
			e.PlannedAt = at
		}
	}
	if _, ok := obj["themes"]; ok {
		e.Themes = stringSlice(obj["themes"])
	}
	if _, ok := obj["zones"]; ok {
		e.Zones = intSlice(obj["zones"])
	}

	if err := s.deps.Excursions.Update(ctx, e); err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	return excursionsdto.NewExcursionResponse(e), nil, nil
}

func (s *service) AddParticipant(ctx context.Context, actor *core.User, excursionAPIID string, body any) (*excursionsdto.ParticipantResponse, validation.Errors, error) {
	e, err := s.get(ctx, excursionAPIID)
	if err != nil {
		return nil, nil, err
	}
	if !canEdit(actor, e) {
		return nil, nil, httperrors.ErrForbidden
	}

	verrs, err := validation.Validate(ctx, body, participantSchema())
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj, _ := body.(map[string]any)
	p := &core.Participant{
		APIID:       shortID(),
		ExcursionID: e.ID,
		Name:        obj["name"].(string),
	}
	if err := s.deps.Excursions.AddParticipant(ctx, p); err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	return excursionsdto.NewParticipantResponse(p), nil, nil
}

func (s *service) ListParticipants(ctx context.Context, excursionAPIID string) ([]*excursionsdto.ParticipantResponse, error) {
	e, err := s.get(ctx, excursionAPIID)
	if err != nil {
		return nil, err
	}
	list, err := s.deps.Excursions.ListParticipants(ctx, e.ID)
	if err != nil {
		return nil, httperrors.ErrInternal.WithCause(err)
	}
	return excursionsdto.NewParticipantResponses(list), nil
}

func (s *service) RemoveParticipant(ctx context.Context, actor *core.User, excursionAPIID, participantAPIID string) error {
	e, err := s.get(ctx, excursionAPIID)
	if err != nil {
		return err
	}
	if !canEdit(actor, e) {
		return httperrors.ErrForbidden
	}
	if err := s.deps.Excursions.RemoveParticipant(ctx, e.ID, participantAPIID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return httperrors.ErrRecordNotFound
		}
		return httperrors.ErrInternal.WithCause(err)
	}
	return nil
}

// ─── Helpers ───

func (s *service) get(ctx context.Context, apiID string) (*core.Excursion, error) {
	e, err := s.deps.Excursions.GetByAPIID(ctx, apiID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, httperrors.ErrRecordNotFound
		}
		return nil, httperrors.ErrInternal.WithCause(err)
	}
	return e, nil
}

func canEdit(actor *core.User, e *core.Excursion) bool {
	return actor != nil && (actor.HasRole(core.RoleAdmin) || actor.APIID == e.CreatorID)
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intSlice(v any) []int {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		if f, ok := item.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// shortID genera el identificador corto de un participante.
func shortID() string {
	b := make([]byte, 2)
	for i := range b {
		b[i] = shortIDAlphabet[rand.Intn(len(shortIDAlphabet))]
	}
	return string(b)
}
