// Package installations administra los dispositivos de campo: alta con
// secreto compartido, propiedades libres y reporte de eventos.
package installations

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	installationsdto "github.com/BloodyDerby/biosentiers-backend/internal/http/dto/installations"
	httperrors "github.com/BloodyDerby/biosentiers-backend/internal/http/errors"
	"github.com/BloodyDerby/biosentiers-backend/internal/observability/logger"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	"github.com/BloodyDerby/biosentiers-backend/internal/validation"
	"github.com/google/uuid"
)

// SharedSecretBytes es el largo del secreto emitido a cada instalación.
const SharedSecretBytes = 32

// Service expone las operaciones sobre instalaciones.
type Service interface {
	// Create da de alta una instalación y emite su secreto. El secreto
	// solo se devuelve acá; después es irrecuperable.
	Create(ctx context.Context, body any) (*installationsdto.CreatedInstallationResponse, validation.Errors, error)
	Get(ctx context.Context, apiID string) (*installationsdto.InstallationResponse, error)
	Update(ctx context.Context, apiID string, body any) (*installationsdto.InstallationResponse, validation.Errors, error)
	// AddEvent registra un evento reportado por la propia instalación y
	// avanza su contador.
	AddEvent(ctx context.Context, apiID string, body any) (*installationsdto.EventResponse, validation.Errors, error)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Installations core.InstallationRepository
	Now           func() time.Time
}

type service struct {
	deps Deps
}

// NewService crea el servicio de instalaciones.
func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{deps: deps}
}

func createSchema() *validation.Rule {
	return validation.Parallel(
		validation.Field("/properties",
			validation.While(validation.IsSet()),
			validation.Type("object"),
		),
		validation.Field("/firstStartedAt",
			validation.While(validation.IsSet()),
			validation.Type("string"),
			validation.ISO8601(),
		),
	)
}

func eventSchema() *validation.Rule {
	return validation.Parallel(
		validation.Field("/type",
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
		),
		validation.Field("/version",
			validation.Required(),
			validation.Type("string"),
			validation.NotBlank(),
		),
		validation.Field("/properties",
			validation.While(validation.IsSet()),
			validation.Type("object"),
		),
		validation.Field("/occurredAt",
			validation.Required(),
			validation.Type("string"),
			validation.ISO8601(),
		),
	)
}

func (s *service) Create(ctx context.Context, body any) (*installationsdto.CreatedInstallationResponse, validation.Errors, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("installations"),
		logger.Op("Create"),
	)

	verrs, err := validation.Validate(ctx, body, createSchema())
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj, _ := body.(map[string]any)
	props, _ := obj["properties"].(map[string]any)

	secret := make([]byte, SharedSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	inst := &core.Installation{
		APIID:        uuid.NewString(),
		SharedSecret: secret,
		Properties:   props,
		Active:       true,
	}
	if v, ok := obj["firstStartedAt"].(string); ok {
		if at, err := validation.ParseISO8601(v); err == nil {
			inst.FirstStartedAt = &at
		}
	}

	if err := s.deps.Installations.Create(ctx, inst); err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	log.Info("installation created", logger.InstallationID(inst.APIID))
	return &installationsdto.CreatedInstallationResponse{
		InstallationResponse: installationsdto.NewInstallationResponse(inst),
		SharedSecret:         hex.EncodeToString(secret),
	}, nil, nil
}

func (s *service) Get(ctx context.Context, apiID string) (*installationsdto.InstallationResponse, error) {
	inst, err := s.deps.Installations.GetByAPIID(ctx, apiID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, httperrors.ErrRecordNotFound
		}
		return nil, httperrors.ErrInternal.WithCause(err)
	}
	return installationsdto.NewInstallationResponse(inst), nil
}

func (s *service) Update(ctx context.Context, apiID string, body any) (*installationsdto.InstallationResponse, validation.Errors, error) {
	inst, err := s.deps.Installations.GetByAPIID(ctx, apiID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, httperrors.ErrRecordNotFound
		}
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	verrs, err := validation.Validate(ctx, body, createSchema())
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj, _ := body.(map[string]any)
	if props, ok := obj["properties"].(map[string]any); ok {
		inst.Properties = props
	}
	if v, ok := obj["firstStartedAt"].(string); ok && inst.FirstStartedAt == nil {
		// La primera puesta en marcha se escribe una sola vez.
		if at, err := validation.ParseISO8601(v); err == nil {
			inst.FirstStartedAt = &at
		}
	}

	if err := s.deps.Installations.Update(ctx, inst); err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	return installationsdto.NewInstallationResponse(inst), nil, nil
}

func (s *service) AddEvent(ctx context.Context, apiID string, body any) (*installationsdto.EventResponse, validation.Errors, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("installations"),
		logger.Op("AddEvent"),
		logger.InstallationID(apiID),
	)

	inst, err := s.deps.Installations.GetByAPIID(ctx, apiID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, httperrors.ErrRecordNotFound
		}
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	verrs, err := validation.Validate(ctx, body, eventSchema())
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}
	if len(verrs) > 0 {
		return nil, verrs, nil
	}

	obj, _ := body.(map[string]any)
	evType, _ := obj["type"].(string)
	version, _ := obj["version"].(string)
	props, _ := obj["properties"].(map[string]any)
	occurredAtRaw, _ := obj["occurredAt"].(string)
	occurredAt, err := validation.ParseISO8601(occurredAtRaw)
	if err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	event := &core.InstallationEvent{
		APIID:          uuid.NewString(),
		InstallationID: inst.ID,
		Type:           evType,
		Version:        version,
		Properties:     props,
		OccurredAt:     occurredAt,
	}
	if err := s.deps.Installations.AddEvent(ctx, event); err != nil {
		return nil, nil, httperrors.ErrInternal.WithCause(err)
	}

	log.Info("installation event recorded", logger.String("type", evType))
	return installationsdto.NewEventResponse(event), nil, nil
}
